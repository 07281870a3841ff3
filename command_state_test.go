package rhi

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func mustSucceed(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %+v", err)
	}
}

func expectCategory(t *testing.T, err, category error) {
	t.Helper()
	if !errors.Is(err, category) {
		t.Fatalf("got %v, want %v", err, category)
	}
}

func TestCommandStateLifecycle(t *testing.T) {
	m := NewCommandStateMachine(CommandBufferPrimary)
	if m.State() != StateInitial {
		t.Fatalf("new buffer is %s", m.State())
	}

	mustSucceed(t, m.Begin(UsageOneTimeSubmit))
	mustSucceed(t, m.RecordOutsideRendering("CopyBuffer"))
	mustSucceed(t, m.BeginRendering())
	mustSucceed(t, m.RecordInRendering("Draw"))
	mustSucceed(t, m.EndRendering())
	mustSucceed(t, m.End())
	if m.State() != StateExecutable {
		t.Fatalf("after End: %s", m.State())
	}

	mustSucceed(t, m.CheckSubmit())
	gen := m.Submitted()
	if m.State() != StatePending {
		t.Fatalf("after submit: %s", m.State())
	}
	expectCategory(t, m.CheckSubmit(), ErrInvalidState)

	m.Retire(gen)
	if m.State() != StateInvalid {
		t.Fatalf("one-time buffer after retirement: %s", m.State())
	}
	expectCategory(t, m.Begin(0), ErrInvalidState)

	m.Reset()
	if m.State() != StateInitial {
		t.Fatalf("after Reset: %s", m.State())
	}
}

func TestCommandStateMultipleSubmit(t *testing.T) {
	m := NewCommandStateMachine(CommandBufferPrimary)
	mustSucceed(t, m.Begin(UsageMultipleSubmit))
	mustSucceed(t, m.End())

	first := m.Submitted()
	mustSucceed(t, m.CheckSubmit())
	second := m.Submitted()

	m.Retire(first)
	if m.State() != StatePending {
		t.Fatalf("after one of two retirements: %s", m.State())
	}
	m.Retire(second)
	if m.State() != StateExecutable {
		t.Fatalf("after all retirements: %s", m.State())
	}
}

func TestCommandStateReusableWithoutFlags(t *testing.T) {
	m := NewCommandStateMachine(CommandBufferPrimary)
	mustSucceed(t, m.Begin(0))
	mustSucceed(t, m.End())
	m.Retire(m.Submitted())
	if m.State() != StateExecutable {
		t.Fatalf("buffer without one-time flag after retirement: %s", m.State())
	}
	mustSucceed(t, m.CheckSubmit())
}

func TestCommandStateStaleRetirement(t *testing.T) {
	m := NewCommandStateMachine(CommandBufferPrimary)
	mustSucceed(t, m.Begin(0))
	mustSucceed(t, m.End())
	gen := m.Submitted()

	m.Reset()
	mustSucceed(t, m.Begin(0))
	mustSucceed(t, m.End())
	m.Submitted()

	m.Retire(gen)
	if m.State() != StatePending {
		t.Fatalf("stale retirement changed state to %s", m.State())
	}
}

func TestCommandStateViolations(t *testing.T) {
	cases := []struct {
		name     string
		level    CommandBufferLevel
		run      func(m *CommandStateMachine) error
		category error
	}{
		{"record before begin", CommandBufferPrimary, func(m *CommandStateMachine) error {
			return m.Record("BindPipeline")
		}, ErrInvalidState},
		{"end before begin", CommandBufferPrimary, func(m *CommandStateMachine) error {
			return m.End()
		}, ErrInvalidState},
		{"begin twice", CommandBufferPrimary, func(m *CommandStateMachine) error {
			m.Begin(0)
			return m.Begin(0)
		}, ErrInvalidState},
		{"exclusive usage flags", CommandBufferPrimary, func(m *CommandStateMachine) error {
			return m.Begin(UsageOneTimeSubmit | UsageMultipleSubmit)
		}, ErrInvalidArgument},
		{"continue on primary", CommandBufferPrimary, func(m *CommandStateMachine) error {
			return m.Begin(UsageRenderPassContinue)
		}, ErrInvalidArgument},
		{"draw outside rendering", CommandBufferPrimary, func(m *CommandStateMachine) error {
			m.Begin(0)
			return m.RecordInRendering("Draw")
		}, ErrInvalidState},
		{"copy inside rendering", CommandBufferPrimary, func(m *CommandStateMachine) error {
			m.Begin(0)
			m.BeginRendering()
			return m.RecordOutsideRendering("CopyBuffer")
		}, ErrInvalidState},
		{"nested rendering", CommandBufferPrimary, func(m *CommandStateMachine) error {
			m.Begin(0)
			m.BeginRendering()
			return m.BeginRendering()
		}, ErrInvalidState},
		{"end rendering without begin", CommandBufferPrimary, func(m *CommandStateMachine) error {
			m.Begin(0)
			return m.EndRendering()
		}, ErrInvalidState},
		{"end inside rendering", CommandBufferPrimary, func(m *CommandStateMachine) error {
			m.Begin(0)
			m.BeginRendering()
			return m.End()
		}, ErrInvalidState},
		{"submit while recording", CommandBufferPrimary, func(m *CommandStateMachine) error {
			m.Begin(0)
			return m.CheckSubmit()
		}, ErrInvalidState},
		{"submit secondary", CommandBufferSecondary, func(m *CommandStateMachine) error {
			m.Begin(0)
			m.End()
			return m.CheckSubmit()
		}, ErrInvalidArgument},
		{"begin rendering on secondary", CommandBufferSecondary, func(m *CommandStateMachine) error {
			m.Begin(0)
			return m.BeginRendering()
		}, ErrInvalidState},
		{"execute primary", CommandBufferPrimary, func(m *CommandStateMachine) error {
			m.Begin(0)
			m.End()
			return m.CheckExecute()
		}, ErrInvalidArgument},
		{"begin secondary on primary", CommandBufferPrimary, func(m *CommandStateMachine) error {
			return m.BeginSecondary(0)
		}, ErrInvalidState},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			m := NewCommandStateMachine(c.level)
			expectCategory(t, c.run(m), c.category)
		})
	}
}

func TestCommandStateSecondaryContinuation(t *testing.T) {
	m := NewCommandStateMachine(CommandBufferSecondary)
	mustSucceed(t, m.BeginSecondary(UsageRenderPassContinue))
	mustSucceed(t, m.RecordInRendering("Draw"))
	expectCategory(t, m.RecordOutsideRendering("CopyBuffer"), ErrInvalidState)
	mustSucceed(t, m.End())
	mustSucceed(t, m.CheckExecute())
}

func TestCommandStateInvalidate(t *testing.T) {
	m := NewCommandStateMachine(CommandBufferPrimary)
	mustSucceed(t, m.Begin(0))
	m.Invalidate()
	expectCategory(t, m.Record("Draw"), ErrInvalidState)
	expectCategory(t, m.CheckSubmit(), ErrInvalidState)
}

func TestCommandBufferStateString(t *testing.T) {
	if StatePending.String() != "Pending" {
		t.Errorf("StatePending.String() = %q", StatePending.String())
	}
	if CommandBufferState(42).String() != "CommandBufferState(42)" {
		t.Errorf("unknown state String() = %q", CommandBufferState(42).String())
	}
}
