package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/episodic/pkg/actor"
	"github.com/offlinefirst/episodic/pkg/capture"
	"github.com/offlinefirst/episodic/pkg/input"
	"github.com/offlinefirst/episodic/pkg/screen"
)

func newRecordCmd(app *App) *cobra.Command {
	var (
		taskContext string
		hz          float64
		duration    time.Duration
		noCursor    bool
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a new episode (stop with Alt+X or Ctrl-C)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Init(cmd.ErrOrStderr()); err != nil {
				return err
			}
			cfg := app.Config
			if cmd.Flags().Changed("hz") {
				if hz <= 0 {
					return fmt.Errorf("hz must be positive, got %v", hz)
				}
				cfg.Record.Hz = hz
			}
			if noCursor {
				cfg.Record.IncludeCursor = false
			}

			screenEnv := screen.DetectEnvironment()
			inputEnv := input.DetectEnvironment()
			app.Logger.Info("capture environment",
				"screen_provider", screenEnv.Provider, "screen_permission", screenEnv.Permission,
				"input_provider", inputEnv.Provider, "input_permission", inputEnv.Permission)
			if !screenEnv.Available {
				return fmt.Errorf("screen capture unavailable: %s", screenEnv.Message)
			}

			provider, err := screen.NewSyntheticProvider(screen.SyntheticOptions{Quality: cfg.Record.JPEGQuality})
			if err != nil {
				return err
			}
			listener := input.NewSyntheticListener(nil)

			recorder, err := capture.NewRecorder(capture.Options{
				Context:        taskContext,
				Hz:             cfg.Record.Hz,
				DataDir:        cfg.Paths.DataDir,
				FlushInterval:  cfg.FlushInterval(),
				IncludeCursor:  cfg.Record.IncludeCursor,
				BufferCapacity: cfg.Record.BufferCapacity,
				Screen:         provider,
				Cursor:         actor.NewSyntheticInjector(),
				Listener:       listener,
				Logger:         app.Logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			result, err := recorder.Run(ctx)
			if err != nil {
				return fmt.Errorf("record episode: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Episode: %s\n", result.Path)
			fmt.Fprintf(cmd.OutOrStdout(), "  id: %s\n", result.EpisodeID)
			fmt.Fprintf(cmd.OutOrStdout(), "  frames: %d\n", result.Frames)
			fmt.Fprintf(cmd.OutOrStdout(), "  events: %d\n", result.Events)
			fmt.Fprintf(cmd.OutOrStdout(), "  termination: %s\n", result.Termination)
			return nil
		},
	}

	cmd.Flags().StringVarP(&taskContext, "context", "c", "", "Free-form description of the task being recorded")
	cmd.Flags().Float64Var(&hz, "hz", 0, "Override the sample frequency")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop automatically after this long (0 records until stopped)")
	cmd.Flags().BoolVar(&noCursor, "no-cursor", false, "Do not mark the cursor position on captured frames")
	return cmd
}
