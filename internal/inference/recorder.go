package inference

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/roach88/varelim/internal/factor"
)

// Operation names the engine entry point that produced a call record.
type Operation string

const (
	OpJoin      Operation = "join"
	OpEliminate Operation = "eliminate"
)

// Call is one recorded engine invocation.
type Call struct {
	// Seq is the logical clock value assigned by the recorder.
	// Zero when the recorder does not stamp calls.
	Seq       int64           `json:"seq"`
	Operation Operation       `json:"operation"`
	Variable  factor.Variable `json:"variable"`
}

// Recorder observes engine invocations.
//
// The engines call Record after their precondition checks pass and before any
// table work begins. They never read from a recorder. A nil Recorder records
// nothing.
type Recorder interface {
	Record(op Operation, v factor.Variable)
}

// Clock is a monotonic logical clock for call ordering.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// CallLog is an append-only in-memory Recorder.
//
// Thread-safety: all methods are safe for concurrent use. Calls from distinct
// goroutines are ordered by the clock, not by any engine guarantee.
type CallLog struct {
	mu    sync.Mutex
	clock *Clock
	calls []Call
}

// NewCallLog creates an empty call log with its own clock.
func NewCallLog() *CallLog {
	return &CallLog{clock: NewClock()}
}

// Record implements Recorder. A nil *CallLog records nothing.
func (l *CallLog) Record(op Operation, v factor.Variable) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.clock == nil {
		l.clock = NewClock()
	}
	l.calls = append(l.calls, Call{Seq: l.clock.Next(), Operation: op, Variable: v})
}

// Calls returns a copy of the recorded calls in order.
func (l *CallLog) Calls() []Call {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// Len returns the number of recorded calls.
func (l *CallLog) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// multiRecorder fans a record out to several recorders in order.
type multiRecorder []Recorder

func (m multiRecorder) Record(op Operation, v factor.Variable) {
	for _, r := range m {
		r.Record(op, v)
	}
}

// MultiRecorder returns a Recorder that forwards to every non-nil recorder.
func MultiRecorder(recorders ...Recorder) Recorder {
	var out multiRecorder
	for _, r := range recorders {
		if r != nil {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func record(rec Recorder, op Operation, v factor.Variable) {
	if rec != nil {
		rec.Record(op, v)
	}
}
