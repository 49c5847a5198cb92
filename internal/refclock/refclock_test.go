package refclock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/maximewewer/pps-monitor/internal/pps"
	"github.com/maximewewer/pps-monitor/pkg/metrics"
	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

type fakeSource struct {
	name  string
	delta pps.TimeDelta
	count uint64
}

func (f *fakeSource) Name() string                     { return f.name }
func (f *fakeSource) LastPPS() (pps.TimeDelta, uint64) { return f.delta, f.count }

func TestNew(t *testing.T) {
	src := &fakeSource{name: "gps0"}
	c := New("pool.ntp.org", 4, 5*time.Second, time.Minute, []PPSSource{src}, nil)

	assert.NotNil(t, c)
	assert.Equal(t, "pool.ntp.org", c.server)
	assert.NotNil(t, c.lastCount)
}

func TestQuery_ContextCancelled(t *testing.T) {
	// An unroutable address: the query can only end via the context.
	c := New("192.0.2.1", 4, 30*time.Second, time.Minute, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.query(ctx)
	assert.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCheck_SkipsStalledSources(t *testing.T) {
	m := metrics.NewPPSMetrics()
	src := &fakeSource{
		name: "gps0",
		delta: pps.TimeDelta{
			Real:  timespec.Timespec{Sec: 1_700_000_001, Nsec: 0},
			Clock: timespec.Timespec{Sec: 1_700_000_001, Nsec: 150},
		},
		count: 3,
	}
	c := New("pool.ntp.org", 4, time.Second, time.Minute, []PPSSource{src}, m)

	// Simulate: this count has already been compared.
	c.lastCount["gps0"] = 3

	// With no fresh pulse, check must not touch the divergence gauge even
	// when the NTP side is unreachable (query fails fast here anyway).
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c.check(ctx)

	assert.Equal(t, uint64(3), c.lastCount["gps0"])
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	c := New("pool.ntp.org", 4, time.Second, time.Hour, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
