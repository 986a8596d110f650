//go:build !windows

package hook

import "fmt"

// Stub backend for platforms without native capture or injection. The Sim
// backend remains available everywhere for tests and dry runs.

type stubHook struct {
	*dispatcher
}

// NewHook returns a hook whose Start fails on this platform.
func NewHook() Hook {
	return &stubHook{dispatcher: newDispatcher()}
}

func (h *stubHook) Start() error {
	return fmt.Errorf("global input hook not supported on this platform")
}

func (h *stubHook) Stop() error { return nil }

func (h *stubHook) Pointer() (Pointer, error) {
	return Pointer{}, fmt.Errorf("pointer query not supported on this platform")
}

type stubInjector struct{}

// NewInjector returns an injector whose primitives fail on this platform.
func NewInjector() Injector {
	return &stubInjector{}
}

func (stubInjector) err() error {
	return fmt.Errorf("input injection not supported on this platform")
}

func (s stubInjector) KeyDown(uint16) error { return s.err() }
func (s stubInjector) KeyUp(uint16) error { return s.err() }
func (s stubInjector) KeyPress(uint16) error { return s.err() }
func (s stubInjector) MouseMove(int, int) error { return s.err() }
func (s stubInjector) MouseButton(string, bool) error { return s.err() }
func (s stubInjector) Wheel(int) error { return s.err() }
func (s stubInjector) TypeText(string) error { return s.err() }
func (s stubInjector) Desktop() (Desktop, error) { return Desktop{}, s.err() }
