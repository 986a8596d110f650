package hook

import (
	"sync"
	"time"
)

// Sim is an in-memory hook and injector backend. It stands in for the OS on
// platforms without a native backend and drives the recorder and player in
// tests: pointer state is scripted, key events are emitted manually, and
// injected input is captured for inspection.
type Sim struct {
	*dispatcher

	mu       sync.Mutex
	running  bool
	pointer  Pointer
	desktop  Desktop
	injected []InjectedCall
	failures map[string]int // primitive name -> remaining forced failures
}

// InjectedCall records one injector primitive invocation.
type InjectedCall struct {
	Op     string // "key_down", "key_up", "key_press", "mouse_move", "mouse_button", "wheel", "type_text"
	VK     uint16
	X, Y   int
	Button string
	Down   bool
	Amount int
	Text   string
}

// NewSim returns a simulated backend with a 1920x1080 single-monitor desktop.
func NewSim() *Sim {
	return &Sim{
		dispatcher: newDispatcher(),
		desktop:    Desktop{Left: 0, Top: 0, Width: 1920, Height: 1080},
		failures:   make(map[string]int),
	}
}

func (s *Sim) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
	return nil
}

func (s *Sim) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	return nil
}

// Running reports whether Start has been called without a matching Stop.
func (s *Sim) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetPointer scripts the polled pointer state.
func (s *Sim) SetPointer(p Pointer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pointer = p
}

// SetDesktop scripts the virtual-desktop metrics. A zero Width or Height
// simulates an unavailable metrics query.
func (s *Sim) SetDesktop(d Desktop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desktop = d
}

// EmitKey delivers a synthetic key transition to all subscribers.
func (s *Sim) EmitKey(vk uint16, down bool) {
	s.dispatch(KeyEvent{VK: vk, Down: down, When: time.Now()})
}

func (s *Sim) Pointer() (Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pointer, nil
}

func (s *Sim) Desktop() (Desktop, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desktop, nil
}

// FailNext forces the next n invocations of the named primitive to fail.
func (s *Sim) FailNext(op string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = n
}

// Injected returns a copy of all recorded injector calls.
func (s *Sim) Injected() []InjectedCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]InjectedCall, len(s.injected))
	copy(out, s.injected)
	return out
}

// ResetInjected clears the recorded injector calls.
func (s *Sim) ResetInjected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.injected = nil
}

func (s *Sim) record(c InjectedCall) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n := s.failures[c.Op]; n > 0 {
		s.failures[c.Op] = n - 1
		return errSimFailure{op: c.Op}
	}
	s.injected = append(s.injected, c)
	return nil
}

type errSimFailure struct{ op string }

func (e errSimFailure) Error() string { return "simulated " + e.op + " failure" }

func (s *Sim) KeyDown(vk uint16) error {
	return s.record(InjectedCall{Op: "key_down", VK: vk})
}

func (s *Sim) KeyUp(vk uint16) error {
	return s.record(InjectedCall{Op: "key_up", VK: vk})
}

func (s *Sim) KeyPress(vk uint16) error {
	return s.record(InjectedCall{Op: "key_press", VK: vk})
}

func (s *Sim) MouseMove(nx, ny int) error {
	return s.record(InjectedCall{Op: "mouse_move", X: nx, Y: ny})
}

func (s *Sim) MouseButton(button string, down bool) error {
	return s.record(InjectedCall{Op: "mouse_button", Button: button, Down: down})
}

func (s *Sim) Wheel(amount int) error {
	return s.record(InjectedCall{Op: "wheel", Amount: amount})
}

func (s *Sim) TypeText(text string) error {
	return s.record(InjectedCall{Op: "type_text", Text: text})
}
