// AutoDesktop - desktop input recorder and replayer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/atomdellow/autodesktop/internal/api"
	"github.com/atomdellow/autodesktop/internal/autostart"
	"github.com/atomdellow/autodesktop/internal/config"
	"github.com/atomdellow/autodesktop/internal/engine"
	"github.com/atomdellow/autodesktop/internal/hook"
	"github.com/atomdellow/autodesktop/internal/logging"
	"github.com/atomdellow/autodesktop/internal/osutils"
	"github.com/atomdellow/autodesktop/internal/store"
	"github.com/atomdellow/autodesktop/internal/tray"
)

var version = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "autodesktop",
		Short:         "Record and replay desktop mouse and keyboard activity",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRecordCmd(),
		newPlayCmd(),
		newListCmd(),
		newDeleteCmd(),
		newServeCmd(),
		newTrayCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup loads config, initializes logging and builds the engine.
func setup() (*config.Manager, *engine.Engine, error) {
	cfgMgr, err := config.NewManager()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	if err := cfgMgr.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: failed to load config:", err)
	}

	cfg := cfgMgr.Get()
	if err := logging.Init(cfg.General.LogLevel); err != nil {
		return nil, nil, err
	}

	dataDir, err := cfgMgr.DataDir()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.New(dataDir, logging.Named("store"))
	if err != nil {
		return nil, nil, err
	}

	eng := engine.New(cfgMgr, hook.NewHook(), hook.NewInjector(), st)
	return cfgMgr, eng, nil
}

func newRecordCmd() *cobra.Command {
	var name string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record mouse and keyboard activity into a workflow",
		Long: `Record captures global mouse and keyboard activity until interrupted
with Ctrl-C (or until --for elapses) and saves the result as a workflow.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := setup()
			if err != nil {
				return err
			}
			defer logging.Sync()
			defer eng.Stop()

			if err := eng.Start(); err != nil {
				return err
			}
			if err := eng.StartRecording(); err != nil {
				return err
			}
			fmt.Println("Recording... press Ctrl-C to stop.")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			if duration > 0 {
				select {
				case <-sigCh:
				case <-time.After(duration):
				}
			} else {
				<-sigCh
			}

			wf, err := eng.StopRecording(name)
			if err != nil {
				return err
			}
			if wf == nil {
				fmt.Println("Nothing recorded.")
				return nil
			}
			fmt.Printf("Saved workflow %s (%q, %d units)\n", wf.ID, wf.Name, len(wf.Units))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "recording", "Name for the saved workflow")
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop automatically after this duration")
	return cmd
}

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play [workflow-id]",
		Short: "Replay a recorded workflow",
		Long: `Play replays a stored workflow. Without an id the most recent recording
is replayed. The configured abort hotkey (Esc by default) cancels playback.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := setup()
			if err != nil {
				return err
			}
			defer logging.Sync()
			defer eng.Stop()

			if err := eng.Start(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if len(args) == 1 {
				return eng.Play(ctx, args[0])
			}
			return eng.PlayLatest(ctx)
		},
	}
	return cmd
}

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List recorded workflows",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := setup()
			if err != nil {
				return err
			}
			defer logging.Sync()

			workflows, err := eng.Store().List()
			if err != nil {
				return err
			}
			if len(workflows) == 0 {
				fmt.Println("No workflows recorded yet.")
				return nil
			}
			for _, wf := range workflows {
				fmt.Printf("%s  %-20s  %3d units  %s\n",
					wf.ID, wf.Name, len(wf.Units), wf.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workflow-id>",
		Short: "Delete a recorded workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, eng, err := setup()
			if err != nil {
				return err
			}
			defer logging.Sync()
			return eng.Store().Delete(args[0])
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server with the global hook installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, eng, err := setup()
			if err != nil {
				return err
			}
			defer logging.Sync()
			defer eng.Stop()

			if err := eng.Start(); err != nil {
				return err
			}

			cfg := cfgMgr.Get()
			if err := osutils.EnsureFirewallRule(cfg.API.Port); err != nil {
				logging.Named("main").Warn("firewall setup failed", zap.Error(err))
			}

			server := api.NewServer(cfgMgr, eng)
			return server.Start(cfg.API.Port)
		},
	}
}

func newTrayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tray",
		Short: "Run in the system tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgMgr, eng, err := setup()
			if err != nil {
				return err
			}
			defer logging.Sync()
			defer eng.Stop()

			if err := eng.Start(); err != nil {
				return err
			}

			cfg := cfgMgr.Get()
			if cfg.General.StartOnBoot && !autostart.IsEnabled() {
				if err := autostart.Enable(); err != nil {
					logging.Named("main").Warn("autostart setup failed", zap.Error(err))
				}
			}
			if cfg.API.Enabled {
				server := api.NewServer(cfgMgr, eng)
				go func() {
					if err := server.Start(cfg.API.Port); err != nil {
						logging.Named("main").Error("api server exited", zap.Error(err))
					}
				}()
			}

			tray.RunApp(eng)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("autodesktop version %s\n", version)
		},
	}
}
