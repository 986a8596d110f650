// Package tray provides the system tray icon and menu using getlantern/systray.
package tray

import (
	"bytes"
	"encoding/binary"

	"github.com/getlantern/systray"
)

// Item is a handle to a single tray menu entry. Its state setters are safe to
// call from any goroutine once the tray loop is running.
type Item struct {
	title     string
	onClick   func()
	separator bool
	item      *systray.MenuItem
}

// SetChecked toggles the checkmark next to the item.
func (it *Item) SetChecked(checked bool) {
	if it.item == nil {
		return
	}
	if checked {
		it.item.Check()
	} else {
		it.item.Uncheck()
	}
}

// SetTitle replaces the item's label.
func (it *Item) SetTitle(title string) {
	it.title = title
	if it.item != nil {
		it.item.SetTitle(title)
	}
}

// Tray accumulates menu entries and then drives the systray event loop.
type Tray struct {
	title   string
	tooltip string
	items   []*Item
	quitCh  chan struct{}
}

func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// AddItem registers a clickable entry and returns its handle. Must be called
// before Run.
func (t *Tray) AddItem(title string, onClick func()) *Item {
	it := &Item{title: title, onClick: onClick}
	t.items = append(t.items, it)
	return it
}

// AddSeparator inserts a menu separator before the next item.
func (t *Tray) AddSeparator() {
	t.items = append(t.items, &Item{separator: true})
}

// Run blocks in the tray event loop until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {
		close(t.quitCh)
	})
}

// Quit terminates the tray loop and unwinds Run.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(trayIcon())

	for _, it := range t.items {
		if it.separator {
			systray.AddSeparator()
			continue
		}
		it.item = systray.AddMenuItem(it.title, "")
		if it.onClick == nil {
			continue
		}
		go func(it *Item) {
			for {
				select {
				case <-it.item.ClickedCh:
					it.onClick()
				case <-t.quitCh:
					return
				}
			}
		}(it)
	}
}

// trayIcon builds a minimal 16x16 32-bit ICO in memory. All pixels are left
// transparent; Windows renders the tooltip and menu regardless.
func trayIcon() []byte {
	const (
		side    = 16
		dibSize = 40
		imgSize = side*side*4 + side*4 // BGRA pixels plus AND mask
	)

	var buf bytes.Buffer
	put := func(v any) { binary.Write(&buf, binary.LittleEndian, v) }

	// ICONDIR
	put(uint16(0))
	put(uint16(1)) // type: icon
	put(uint16(1)) // one image

	// ICONDIRENTRY
	buf.Write([]byte{side, side, 0, 0})
	put(uint16(1))  // planes
	put(uint16(32)) // bpp
	put(uint32(dibSize + imgSize))
	put(uint32(6 + 16)) // data offset

	// BITMAPINFOHEADER, height doubled for the mask
	put(uint32(dibSize))
	put(int32(side))
	put(int32(side * 2))
	put(uint16(1))
	put(uint16(32))
	put(uint32(0))
	put(uint32(imgSize))
	put([4]uint32{})

	buf.Write(make([]byte, imgSize))
	return buf.Bytes()
}
