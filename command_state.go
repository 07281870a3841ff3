package rhi

import (
	"fmt"
	"sync"
)

type CommandBufferState int

const (
	StateInitial CommandBufferState = iota
	StateRecording
	StateExecutable
	StatePending
	StateInvalid
)

func (s CommandBufferState) String() string {
	switch s {
	case StateInitial:
		return "Initial"
	case StateRecording:
		return "Recording"
	case StateExecutable:
		return "Executable"
	case StatePending:
		return "Pending"
	case StateInvalid:
		return "Invalid"
	}
	return fmt.Sprintf("CommandBufferState(%d)", int(s))
}

// CommandStateMachine enforces the recording protocol of a command buffer:
//
//	Initial -> Recording -> Executable -> Pending -> Executable | Invalid
//
// Reset returns to Initial from any state. Backends embed it and consult it
// before touching the native command buffer, so a protocol violation never
// reaches the driver.
//
// Recording methods are not synchronized; only the submission side (Submit,
// Retire) may be called from other goroutines.
type CommandStateMachine struct {
	mu         sync.Mutex
	state      CommandBufferState
	usage      CommandBufferUsage
	level      CommandBufferLevel
	rendering  bool
	continued  bool
	pending    int
	generation uint64
}

// NewCommandStateMachine starts in Initial.
func NewCommandStateMachine(level CommandBufferLevel) *CommandStateMachine {
	return &CommandStateMachine{level: level}
}

// State is safe to call while the buffer is pending.
func (m *CommandStateMachine) State() CommandBufferState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Level is fixed at construction.
func (m *CommandStateMachine) Level() CommandBufferLevel {
	return m.level
}

// Usage is the usage passed to the last Begin.
func (m *CommandStateMachine) Usage() CommandBufferUsage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Generation changes on every Reset and Begin. Submissions remember it so
// that a retirement arriving after a reset is ignored.
func (m *CommandStateMachine) Generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation
}

// Begin moves an Initial buffer to Recording.
func (m *CommandStateMachine) Begin(usage CommandBufferUsage) error {
	return m.begin(usage, false)
}

// BeginSecondary starts a secondary buffer. With UsageRenderPassContinue the
// buffer records draws as if inside the pass it will be executed in.
func (m *CommandStateMachine) BeginSecondary(usage CommandBufferUsage) error {
	if m.level != CommandBufferSecondary {
		return InvalidStatef("BeginSecondary: command buffer is primary")
	}
	return m.begin(usage, usage&UsageRenderPassContinue != 0)
}

func (m *CommandStateMachine) begin(usage CommandBufferUsage, continued bool) error {
	if usage&UsageOneTimeSubmit != 0 && usage&UsageMultipleSubmit != 0 {
		return InvalidArgumentf("Begin: one-time and multiple submit are exclusive")
	}
	if usage&UsageRenderPassContinue != 0 && m.level != CommandBufferSecondary {
		return InvalidArgumentf("Begin: render pass continuation requires a secondary buffer")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateInitial {
		return InvalidStatef("Begin: command buffer is %s, want Initial", m.state)
	}
	m.state = StateRecording
	m.usage = usage
	m.continued = continued
	m.rendering = false
	m.generation++
	return nil
}

// Record checks that op may be recorded now.
func (m *CommandStateMachine) Record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recording(op)
}

// RecordInRendering checks that op may be recorded inside a render pass.
func (m *CommandStateMachine) RecordInRendering(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recording(op); err != nil {
		return err
	}
	if !m.rendering && !m.continued {
		return InvalidStatef("%s: not inside BeginRendering/EndRendering", op)
	}
	return nil
}

// RecordOutsideRendering checks that op may be recorded outside a render pass.
func (m *CommandStateMachine) RecordOutsideRendering(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recording(op); err != nil {
		return err
	}
	if m.rendering || m.continued {
		return InvalidStatef("%s: not allowed inside a render pass", op)
	}
	return nil
}

func (m *CommandStateMachine) recording(op string) error {
	if m.state != StateRecording {
		return InvalidStatef("%s: command buffer is %s, want Recording", op, m.state)
	}
	return nil
}

// Rendering reports whether BeginRendering is open.
func (m *CommandStateMachine) Rendering() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rendering
}

// BeginRendering opens a render pass on a recording primary buffer.
func (m *CommandStateMachine) BeginRendering() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recording("BeginRendering"); err != nil {
		return err
	}
	if m.level != CommandBufferPrimary {
		return InvalidStatef("BeginRendering: secondary buffers continue a pass instead")
	}
	if m.rendering {
		return InvalidStatef("BeginRendering: already rendering")
	}
	m.rendering = true
	return nil
}

// EndRendering closes the pass opened by BeginRendering.
func (m *CommandStateMachine) EndRendering() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recording("EndRendering"); err != nil {
		return err
	}
	if !m.rendering {
		return InvalidStatef("EndRendering: BeginRendering was not called")
	}
	m.rendering = false
	return nil
}

// End moves a Recording buffer with no open pass to Executable.
func (m *CommandStateMachine) End() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.recording("End"); err != nil {
		return err
	}
	if m.rendering {
		return InvalidStatef("End: EndRendering was not called")
	}
	m.state = StateExecutable
	return nil
}

// Reset forces Initial.
func (m *CommandStateMachine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateInitial
	m.rendering = false
	m.continued = false
	m.pending = 0
	m.generation++
}

// Invalidate moves the buffer to Invalid, for example after a failed native
// call or when its pool frees it.
func (m *CommandStateMachine) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateInvalid
	m.rendering = false
	m.pending = 0
}

// CheckSubmit reports whether the buffer may be submitted. A pending buffer
// may be submitted again only when it was begun with UsageMultipleSubmit.
func (m *CommandStateMachine) CheckSubmit() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkSubmit()
}

func (m *CommandStateMachine) checkSubmit() error {
	if m.level != CommandBufferPrimary {
		return InvalidArgumentf("Submit: secondary command buffers are executed through ExecuteCommands")
	}
	switch m.state {
	case StateExecutable:
		return nil
	case StatePending:
		if m.usage&UsageMultipleSubmit != 0 {
			return nil
		}
	}
	return InvalidStatef("Submit: command buffer is %s, want Executable", m.state)
}

// CheckExecute reports whether a secondary buffer may be executed from a
// primary one.
func (m *CommandStateMachine) CheckExecute() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.level != CommandBufferSecondary {
		return InvalidArgumentf("ExecuteCommands: command buffer is primary")
	}
	if m.state != StateExecutable && m.state != StatePending {
		return InvalidStatef("ExecuteCommands: command buffer is %s, want Executable", m.state)
	}
	return nil
}

// Submitted marks the buffer Pending and returns the generation to pass to
// Retire.
func (m *CommandStateMachine) Submitted() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StatePending
	m.pending++
	return m.generation
}

// Retire records that one submission of generation gen finished executing.
func (m *CommandStateMachine) Retire(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.generation || m.state != StatePending {
		return
	}
	m.pending--
	if m.pending > 0 {
		return
	}
	if m.usage&UsageOneTimeSubmit != 0 {
		m.state = StateInvalid
	} else {
		m.state = StateExecutable
	}
}
