package pps

import "testing"

func TestClassifyTable(t *testing.T) {
	tests := []struct {
		name     string
		cycle    int64
		duration int64
		edge     int
		wantOK   bool
		wantKind pulseKind
	}{
		{"negative_cycle", -5, 0, edgeAssert, false, kindNone},
		{"too_short_for_5hz", 100_000, 50_000, edgeAssert, false, kindNone},
		{"5hz_pulse", 200_000, 50_000, edgeAssert, true, kind5Hz},
		{"5hz_boundary_accept", 200_999, 99_999, edgeAssert, true, kind5Hz},
		{"5hz_duration_boundary_reject", 200_000, 100_000, edgeAssert, false, kindNone},
		{"5hz_upper_boundary_reject", 201_000, 50_000, edgeAssert, false, kindNone},
		{"5hz_1hz_gap", 500_000, 100_000, edgeAssert, false, kindNone},
		{"1hz_lower_boundary_gap", 899_999, 100_000, edgeAssert, false, kindNone},
		{"invisible_pulse", 1_000_000, 0, edgeClear, true, kindInvisible},
		{"1hz_trailing_edge", 1_000_000, 50_000, edgeClear, false, kindNone},
		{"1hz_trailing_boundary", 1_000_000, 498_999, edgeAssert, false, kindNone},
		{"1hz_square_assert", 1_000_000, 500_000, edgeAssert, true, kind1HzSquare},
		{"1hz_square_clear_rejected", 1_000_000, 500_000, edgeClear, false, kindNone},
		{"1hz_leading_edge", 1_000_000, 950_000, edgeClear, true, kind1HzLeading},
		{"1hz_leading_edge_assert", 1_050_000, 800_000, edgeAssert, true, kind1HzLeading},
		{"1hz_upper_boundary_gap", 1_100_000, 950_000, edgeAssert, false, kindNone},
		{"1hz_halfhz_gap", 1_500_000, 950_000, edgeAssert, false, kindNone},
		{"halfhz_square", 2_000_000, 1_000_000, edgeClear, true, kindHalfHzSquare},
		{"halfhz_short_duration", 2_000_000, 998_999, edgeAssert, false, kindNone},
		{"halfhz_long_duration", 2_000_000, 1_001_000, edgeAssert, false, kindNone},
		{"halfhz_upper_boundary", 2_001_000, 1_000_000, edgeAssert, false, kindNone},
		{"too_long_for_halfhz", 3_000_000, 1_000_000, edgeAssert, false, kindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := classify(tt.cycle, tt.duration, tt.edge)
			if v.ok != tt.wantOK {
				t.Errorf("classify(%d, %d, %d).ok = %v, want %v (tag %q)",
					tt.cycle, tt.duration, tt.edge, v.ok, tt.wantOK, v.tag)
			}
			if v.kind != tt.wantKind {
				t.Errorf("classify(%d, %d, %d).kind = %v, want %v",
					tt.cycle, tt.duration, tt.edge, v.kind, tt.wantKind)
			}
			if v.tag == "" {
				t.Error("classify returned an empty tag")
			}
		})
	}
}

func TestKppsWindow(t *testing.T) {
	tests := []struct {
		cycle int64
		want  bool
	}{
		{1_000_000, true},
		{990_001, true},
		{1_009_999, true},
		{990_000, false},
		{1_010_000, false},
		{200_000, false},
		{-1, false},
	}

	for _, tt := range tests {
		if got := kppsInWindow(tt.cycle); got != tt.want {
			t.Errorf("kppsInWindow(%d) = %v, want %v", tt.cycle, got, tt.want)
		}
	}
}

func TestInvisibleCycle(t *testing.T) {
	tests := []struct {
		cycle int64
		want  bool
	}{
		{1_000_000, true},
		{999_001, true},
		{1_000_999, true},
		{999_000, false},
		{1_001_000, false},
		{100_000, false},
	}

	for _, tt := range tests {
		if got := invisibleCycle(tt.cycle); got != tt.want {
			t.Errorf("invisibleCycle(%d) = %v, want %v", tt.cycle, got, tt.want)
		}
	}
}

func TestReasonLabel(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"Too short for 5Hz", "too_short_for_5hz"},
		{"0.5 Hz square wave", "05_hz_square_wave"},
		{"this second already handled", "this_second_already_handled"},
	}

	for _, tt := range tests {
		if got := reasonLabel(tt.tag); got != tt.want {
			t.Errorf("reasonLabel(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}
