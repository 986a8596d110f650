package hotkey

import "context"

// WithAbort derives a context that is cancelled when the given hotkey fires.
// The returned cleanup must be called to release the binding; it also cancels
// the context.
func WithAbort(ctx context.Context, m *Manager, hotkeyStr string) (context.Context, func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	id, err := m.Register(hotkeyStr, cancel)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	cleanup := func() {
		m.Unregister(id)
		cancel()
	}
	return ctx, cleanup, nil
}
