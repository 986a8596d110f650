// Package hook wraps the process-wide OS input hook and its companion input
// injector behind explicit-lifetime resource objects. Key transitions are
// delivered through multiplexed subscriptions so the recorder and an
// independent abort listener can share the single OS hook; cursor and button
// state is a polled query.
package hook

import (
	"sync"
	"time"
)

// MoveRange is the upper bound of the injector's normalized coordinate range.
// Absolute mouse moves address the virtual desktop as 0..MoveRange on both
// axes.
const MoveRange = 65535

// KeyEvent is one raw key transition as reported by the OS hook.
type KeyEvent struct {
	VK   uint16
	Down bool
	When time.Time
}

// Pointer is the polled cursor position and button state.
type Pointer struct {
	X, Y                float64
	Left, Right, Middle bool
}

// Desktop describes the virtual-desktop coordinate space spanning all
// attached monitors.
type Desktop struct {
	Left, Top     int
	Width, Height int
}

// Hook is the process-wide input listener. Start and Stop are idempotent and
// safe to call from any goroutine; Subscribe may be called before or after
// Start.
type Hook interface {
	Start() error
	Stop() error

	// Subscribe registers a key-transition callback and returns an id for
	// Unsubscribe. Callbacks run on the hook's dispatch goroutine and must not
	// block.
	Subscribe(fn func(KeyEvent)) int
	Unsubscribe(id int)

	// Pointer returns the current cursor position in virtual-desktop pixels
	// and the state of the three mouse buttons.
	Pointer() (Pointer, error)
}

// Injector synthesizes OS-visible input events.
type Injector interface {
	KeyDown(vk uint16) error
	KeyUp(vk uint16) error
	KeyPress(vk uint16) error

	// MouseMove positions the cursor using normalized virtual-desktop
	// coordinates in 0..MoveRange.
	MouseMove(nx, ny int) error
	MouseButton(button string, down bool) error
	Wheel(amount int) error

	// TypeText enters a literal string verbatim, independent of keyboard
	// layout.
	TypeText(text string) error

	// Desktop returns the playback environment's virtual-desktop metrics.
	Desktop() (Desktop, error)
}

// dispatcher implements the multiplexed subscription shared by all hook
// backends.
type dispatcher struct {
	mu     sync.Mutex
	subs   map[int]func(KeyEvent)
	nextID int
}

func newDispatcher() *dispatcher {
	return &dispatcher{subs: make(map[int]func(KeyEvent))}
}

func (d *dispatcher) Subscribe(fn func(KeyEvent)) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	d.subs[d.nextID] = fn
	return d.nextID
}

func (d *dispatcher) Unsubscribe(id int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.subs, id)
}

func (d *dispatcher) dispatch(ev KeyEvent) {
	d.mu.Lock()
	fns := make([]func(KeyEvent), 0, len(d.subs))
	for _, fn := range d.subs {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
