// Package engine coordinates recording, playback and workflow storage.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/action"
	"github.com/atomdellow/autodesktop/internal/config"
	"github.com/atomdellow/autodesktop/internal/hook"
	"github.com/atomdellow/autodesktop/internal/hotkey"
	"github.com/atomdellow/autodesktop/internal/logging"
	"github.com/atomdellow/autodesktop/internal/player"
	"github.com/atomdellow/autodesktop/internal/recorder"
	"github.com/atomdellow/autodesktop/internal/store"
)

// Engine ties the recorder, player and store together behind a single
// session-aware surface used by the CLI, the tray and the HTTP API.
type Engine struct {
	mu        sync.Mutex
	log       *zap.Logger
	configMgr *config.Manager
	hk        hook.Hook
	rec       *recorder.Recorder
	pl        *player.Player
	st        *store.Store
	hotkeys   *hotkey.Manager

	abortPlay  func()
	toggleID   int
	hookActive bool

	// Callbacks for UI notifications
	onRecordState []func(recording bool, units int)
	onPlayState   []func(playing bool, workflowID string, errMsg string)
	onProgress    []func(p player.Progress)
}

// New creates an engine over the given hook and injector.
func New(configMgr *config.Manager, hk hook.Hook, inj hook.Injector, st *store.Store, opts ...player.Option) *Engine {
	cfg := configMgr.Get()
	opts = append([]player.Option{player.WithSpeed(cfg.Player.SpeedFactor)}, opts...)

	hkm := hotkey.NewManager(hk)
	hkm.SetLogger(logging.Named("hotkey"))

	return &Engine{
		log:       logging.Named("engine"),
		configMgr: configMgr,
		hk:        hk,
		rec:       recorder.New(hk, cfg.Recorder),
		pl:        player.New(inj, opts...),
		st:        st,
		hotkeys:   hkm,
	}
}

// OnRecordState adds a callback for recording state changes.
func (e *Engine) OnRecordState(callback func(recording bool, units int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onRecordState = append(e.onRecordState, callback)
}

// OnPlayState adds a callback for playback state changes.
func (e *Engine) OnPlayState(callback func(playing bool, workflowID string, errMsg string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onPlayState = append(e.onPlayState, callback)
}

// OnProgress adds a callback for per-unit playback progress.
func (e *Engine) OnProgress(callback func(p player.Progress)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onProgress = append(e.onProgress, callback)
}

// Store exposes the workflow store.
func (e *Engine) Store() *store.Store {
	return e.st
}

// Start installs the global hook and binds the record-toggle hotkey.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.hookActive {
		return nil
	}
	if err := e.hk.Start(); err != nil {
		return fmt.Errorf("failed to install input hook: %w", err)
	}
	e.hookActive = true
	e.hotkeys.Bind()

	toggle := e.configMgr.Get().Recorder.ToggleHotkey
	if toggle != "" {
		id, err := e.hotkeys.Register(toggle, e.toggleRecording)
		if err != nil {
			e.log.Warn("record toggle hotkey not bound",
				zap.String("hotkey", toggle), zap.Error(err))
		} else {
			e.toggleID = id
		}
	}
	return nil
}

// Stop unbinds hotkeys and removes the global hook.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.abortPlay != nil {
		e.abortPlay()
	}
	if !e.hookActive {
		return
	}
	e.hotkeys.Clear()
	e.hotkeys.Unbind()
	if err := e.hk.Stop(); err != nil {
		e.log.Warn("hook shutdown failed", zap.Error(err))
	}
	e.hookActive = false
}

// IsRecording reports whether a recording session is active.
func (e *Engine) IsRecording() bool {
	return e.rec.IsRecording()
}

// IsPlaying reports whether a playback session is active.
func (e *Engine) IsPlaying() bool {
	return e.pl.IsPlaying()
}

// StartRecording begins capturing input into a new timeline.
func (e *Engine) StartRecording() error {
	if e.pl.IsPlaying() {
		return fmt.Errorf("cannot record during playback: %w", action.ErrSessionConflict)
	}
	if err := e.rec.Start(); err != nil {
		return err
	}
	e.notifyRecordState(true, 0)
	return nil
}

// StopRecording ends the capture session and persists the result as a named
// workflow. A recording with no units is discarded and returns nil.
func (e *Engine) StopRecording(name string) (*store.Workflow, error) {
	units, err := e.rec.Stop()
	if err != nil {
		return nil, err
	}
	e.notifyRecordState(false, len(units))

	if len(units) == 0 {
		e.log.Info("empty recording discarded")
		return nil, nil
	}
	return e.st.Create(name, units)
}

func (e *Engine) toggleRecording() {
	if e.rec.IsRecording() {
		if _, err := e.StopRecording("recording"); err != nil {
			e.log.Error("hotkey stop failed", zap.Error(err))
		}
		return
	}
	if err := e.StartRecording(); err != nil {
		e.log.Error("hotkey start failed", zap.Error(err))
	}
}

// Play replays a stored workflow by id, blocking until it finishes or is
// aborted. The configured abort hotkey cancels playback while it runs.
func (e *Engine) Play(ctx context.Context, id string) error {
	wf, err := e.st.Load(id)
	if err != nil {
		return err
	}
	return e.playWorkflow(ctx, wf)
}

// PlayLatest replays the most recently recorded workflow.
func (e *Engine) PlayLatest(ctx context.Context) error {
	wf, err := e.st.Latest()
	if err != nil {
		return err
	}
	if wf == nil {
		return fmt.Errorf("no workflows recorded yet")
	}
	return e.playWorkflow(ctx, wf)
}

func (e *Engine) playWorkflow(ctx context.Context, wf *store.Workflow) error {
	if e.rec.IsRecording() {
		return fmt.Errorf("cannot play during recording: %w", action.ErrSessionConflict)
	}

	abortKey := e.configMgr.Get().Player.AbortHotkey
	cleanup := func() {}
	if abortKey != "" {
		var err error
		ctx, cleanup, err = hotkey.WithAbort(ctx, e.hotkeys, abortKey)
		if err != nil {
			e.log.Warn("abort hotkey not bound",
				zap.String("hotkey", abortKey), zap.Error(err))
			cleanup = func() {}
		}
	}
	defer cleanup()

	playCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.abortPlay = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		e.abortPlay = nil
		e.mu.Unlock()
	}()

	e.notifyPlayState(true, wf.ID, "")
	err := e.pl.ExecuteWorkflow(playCtx, wf.Units, e.notifyProgress)

	errMsg := ""
	if err != nil && !errors.Is(err, context.Canceled) {
		errMsg = err.Error()
	}
	e.notifyPlayState(false, wf.ID, errMsg)
	return err
}

// Abort cancels the active playback session, if any.
func (e *Engine) Abort() {
	e.mu.Lock()
	cancel := e.abortPlay
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (e *Engine) notifyRecordState(recording bool, units int) {
	e.mu.Lock()
	cbs := append([]func(bool, int){}, e.onRecordState...)
	e.mu.Unlock()
	for _, cb := range cbs {
		cb(recording, units)
	}
}

func (e *Engine) notifyPlayState(playing bool, workflowID, errMsg string) {
	e.mu.Lock()
	cbs := append([]func(bool, string, string){}, e.onPlayState...)
	e.mu.Unlock()
	for _, cb := range cbs {
		cb(playing, workflowID, errMsg)
	}
}

func (e *Engine) notifyProgress(p player.Progress) {
	e.mu.Lock()
	cbs := append([]func(player.Progress){}, e.onProgress...)
	e.mu.Unlock()
	for _, cb := range cbs {
		cb(p)
	}
}
