package pps

import (
	"sync"

	"github.com/maximewewer/pps-monitor/pkg/timespec"
)

// ScriptedEdge is one wakeup delivered by a ScriptedSource.
type ScriptedEdge struct {
	At    timespec.Timespec
	State int

	// Before runs at Wait time, before the worker snapshots the edge.
	// Tests use it to stash fix times with the same ordering the receiver
	// reader would have.
	Before func()
}

// ScriptedSource is an EdgeSource fed from a fixed script, for driving
// the monitor without hardware. Wait returns ErrSourceClosed when the
// script is exhausted or the source is closed, which ends the worker the
// same way a real descriptor close does.
type ScriptedSource struct {
	mu     sync.Mutex
	edges  []ScriptedEdge
	pos    int
	closed bool
}

// NewScriptedSource creates a source that replays the given edges in
// order.
func NewScriptedSource(edges ...ScriptedEdge) *ScriptedSource {
	return &ScriptedSource{edges: edges}
}

// Append adds further edges to the script.
func (s *ScriptedSource) Append(edges ...ScriptedEdge) {
	s.mu.Lock()
	s.edges = append(s.edges, edges...)
	s.mu.Unlock()
}

// Wait delivers the next scripted wakeup.
func (s *ScriptedSource) Wait() error {
	s.mu.Lock()
	if s.closed || s.pos >= len(s.edges) {
		s.mu.Unlock()
		return ErrSourceClosed
	}
	before := s.edges[s.pos].Before
	s.mu.Unlock()

	if before != nil {
		before()
	}
	return nil
}

// Snapshot returns the current scripted edge and advances the script.
func (s *ScriptedSource) Snapshot() (Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pos >= len(s.edges) {
		return Edge{}, ErrSourceClosed
	}
	e := s.edges[s.pos]
	s.pos++
	return Edge{At: e.At, State: e.State}, nil
}

// Close marks the source closed; pending and future Waits fail.
func (s *ScriptedSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// ScriptedCapture is a KernelPPS fed from a fixed script of assert/clear
// timestamp pairs. When the script runs out the last pair repeats, like a
// real handle that keeps returning the most recent capture.
type ScriptedCapture struct {
	mu     sync.Mutex
	pairs  [][2]timespec.Timespec
	pos    int
	err    error
	closed bool
}

// NewScriptedCapture creates a capture handle replaying the given pairs;
// each pair is (assert, clear).
func NewScriptedCapture(pairs ...[2]timespec.Timespec) *ScriptedCapture {
	return &ScriptedCapture{pairs: pairs}
}

// FailWith makes every subsequent Fetch return err.
func (c *ScriptedCapture) FailWith(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

// Fetch returns the next scripted pair.
func (c *ScriptedCapture) Fetch(poll bool) (assert, clear timespec.Timespec, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return timespec.Timespec{}, timespec.Timespec{}, c.err
	}
	if len(c.pairs) == 0 {
		return timespec.Timespec{}, timespec.Timespec{}, ErrSourceClosed
	}
	i := c.pos
	if i >= len(c.pairs) {
		i = len(c.pairs) - 1
	} else {
		c.pos++
	}
	return c.pairs[i][0], c.pairs[i][1], nil
}

// Close marks the handle closed.
func (c *ScriptedCapture) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Closed reports whether Close was called, for teardown assertions.
func (c *ScriptedCapture) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
