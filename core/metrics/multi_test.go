package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	count int
	err   error
}

func (r *recordSink) RecordIteration(IterationEvent) error {
	r.count++
	return r.err
}

func (r *recordSink) RecordPeriods([]PeriodEvent) error {
	r.count++
	return r.err
}

// iterationOnly does not implement the optional recorders.
type iterationOnly struct{ count int }

func (s *iterationOnly) RecordIteration(IterationEvent) error {
	s.count++
	return nil
}

func TestMultiSink(t *testing.T) {
	s1, s2 := &recordSink{}, &iterationOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordIteration(IterationEvent{Iteration: 1}); err != nil {
		t.Fatalf("record iteration: %v", err)
	}
	if err := m.RecordPeriods([]PeriodEvent{{}}); err != nil {
		t.Fatalf("record periods: %v", err)
	}
	if err := m.RecordRun(RunEvent{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if s1.count != 2 || s2.count != 1 {
		t.Fatalf("unexpected counts %d %d", s1.count, s2.count)
	}
}

func TestMultiSinkJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	m := NewMultiSink(&recordSink{err: boom}, &recordSink{})
	if err := m.RecordIteration(IterationEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error got %v", err)
	}
}
