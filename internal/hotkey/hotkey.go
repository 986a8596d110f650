// Package hotkey provides global hotkey registration and matching on top of
// the shared keyboard hook.
package hotkey

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/action"
	"github.com/atomdellow/autodesktop/internal/hook"
)

// sidedAliases folds left/right modifier variants into the generic name so a
// hotkey written as "Ctrl+Alt+R" matches either physical key.
var sidedAliases = map[string]string{
	"LCTRL": "CTRL", "RCTRL": "CTRL",
	"LSHIFT": "SHIFT", "RSHIFT": "SHIFT",
	"LALT": "ALT", "RALT": "ALT",
	"LWIN": "WIN", "RWIN": "WIN",
}

// Manager matches registered hotkey combinations against the live key state
// reported by the hook.
type Manager struct {
	mu           sync.RWMutex
	log          *zap.Logger
	hotkeys      map[int]*registeredHotkey
	nextID       int
	currentState map[string]bool
	hk           hook.Hook
	subID        int
	bound        bool
}

type registeredHotkey struct {
	parts    []string
	original string
	callback func()
}

// NewManager creates a hotkey manager over the given hook.
func NewManager(hk hook.Hook) *Manager {
	return &Manager{
		log:          zap.NewNop(),
		hotkeys:      make(map[int]*registeredHotkey),
		currentState: make(map[string]bool),
		hk:           hk,
	}
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(log *zap.Logger) {
	if log != nil {
		m.log = log
	}
}

// Register parses a hotkey string (e.g. "Ctrl+Alt+R", "Esc") and registers a
// callback for it. The returned id can be passed to Unregister.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if strings.TrimSpace(hotkeyStr) == "" {
		return 0, fmt.Errorf("empty hotkey")
	}

	parts := strings.Split(strings.ToUpper(hotkeyStr), "+")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
		if _, generic := sidedAliases[parts[i]]; generic {
			continue
		}
		if _, err := action.KeyCodeFor(parts[i]); err != nil {
			return 0, fmt.Errorf("hotkey %q: %w", hotkeyStr, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.hotkeys[id] = &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	}
	return id, nil
}

// Unregister removes a single hotkey binding.
func (m *Manager) Unregister(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.hotkeys, id)
}

// Clear removes all registered hotkeys.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = make(map[int]*registeredHotkey)
}

// Bind subscribes the manager to the hook's key events. The hook itself must
// be started by the caller.
func (m *Manager) Bind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bound {
		return
	}
	m.subID = m.hk.Subscribe(m.handleKey)
	m.bound = true
}

// Unbind detaches the manager from the hook and resets the tracked key state.
func (m *Manager) Unbind() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.bound {
		return
	}
	m.hk.Unsubscribe(m.subID)
	m.bound = false
	m.currentState = make(map[string]bool)
}

func (m *Manager) handleKey(ev hook.KeyEvent) {
	name, ok := action.KeyName(ev.VK)
	if !ok {
		return
	}
	m.UpdateState(name, ev.Down)
}

// UpdateState records a key transition and, on key-down, checks whether any
// registered combination is now fully held.
func (m *Manager) UpdateState(key string, isDown bool) {
	key = strings.ToUpper(key)

	m.mu.Lock()
	m.setStateLocked(key, isDown)
	if generic, ok := sidedAliases[key]; ok {
		m.setStateLocked(generic, isDown)
	}
	m.mu.Unlock()

	if isDown {
		m.checkMatches()
	}
}

func (m *Manager) setStateLocked(key string, isDown bool) {
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
}

func (m *Manager) checkMatches() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		match := true
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
		}
		if match {
			m.log.Debug("hotkey triggered", zap.String("hotkey", hk.original))
			go hk.callback()
		}
	}
}
