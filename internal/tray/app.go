package tray

import (
	"context"

	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/engine"
	"github.com/atomdellow/autodesktop/internal/logging"
)

// RunApp builds the application menu over the engine and blocks in the tray
// event loop until Quit is selected.
func RunApp(eng *engine.Engine) {
	log := logging.Named("tray")
	t := New("AutoDesktop", "AutoDesktop recorder")

	record := t.AddItem("Start Recording", func() {
		if eng.IsRecording() {
			if _, err := eng.StopRecording("recording"); err != nil {
				log.Error("stop recording failed", zap.Error(err))
			}
			return
		}
		if err := eng.StartRecording(); err != nil {
			log.Error("start recording failed", zap.Error(err))
		}
	})

	t.AddItem("Play Latest", func() {
		go func() {
			if err := eng.PlayLatest(context.Background()); err != nil {
				log.Warn("playback ended with error", zap.Error(err))
			}
		}()
	})

	t.AddItem("Abort Playback", func() {
		eng.Abort()
	})

	t.AddSeparator()
	t.AddItem("Quit", func() {
		t.Quit()
	})

	eng.OnRecordState(func(recording bool, units int) {
		record.SetChecked(recording)
		if recording {
			record.SetTitle("Stop Recording")
		} else {
			record.SetTitle("Start Recording")
		}
	})

	t.Run()
}
