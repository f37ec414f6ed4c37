package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/episodic/pkg/actor"
	"github.com/offlinefirst/episodic/pkg/capture"
	"github.com/offlinefirst/episodic/pkg/episode"
	"github.com/offlinefirst/episodic/pkg/input"
	"github.com/offlinefirst/episodic/pkg/replay"
)

func newReplayCmd(app *App) *cobra.Command {
	var (
		countdown int
		keyDelay  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "replay [episode]",
		Short: "Replay a recorded episode with its original timing",
		Long: "Replays the given episode file, or the most recent recording when no\n" +
			"argument is supplied. Any key press during replay aborts it.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.ErrOrStderr()); err != nil {
				return err
			}
			if countdown < 0 {
				countdown = app.Config.Replay.CountdownSeconds
			}
			if keyDelay == 0 {
				keyDelay = app.Config.KeyDelay()
			}

			path, err := resolveEpisodePath(app.Config.Paths.DataDir, args)
			if err != nil {
				return err
			}

			meta, events, err := episode.LoadEvents(path, app.Logger)
			if err != nil {
				return fmt.Errorf("load episode: %w", err)
			}
			app.Logger.Info("episode loaded", "path", path, "id", meta.ID, "events", len(events))
			if len(events) == 0 {
				return errors.New("episode contains no replayable events")
			}

			injector := actor.NewSyntheticInjector()
			cursor, err := actor.NewCursorActor(actor.CursorOptions{
				Mode:     actor.CursorModePosition,
				Injector: injector,
				Logger:   app.Logger,
			})
			if err != nil {
				return err
			}
			defer cursor.Close()
			eventActor, err := actor.NewEventActor(actor.EventOptions{
				Mode:     actor.EventModeImmediate,
				Injector: injector,
				Logger:   app.Logger,
			})
			if err != nil {
				return err
			}
			defer eventActor.Close()

			scheduler, err := replay.NewScheduler(replay.Options{
				Cursor:   cursor,
				Events:   eventActor,
				Safety:   input.NewSyntheticListener(nil),
				KeyDelay: keyDelay,
				Logger:   app.Logger,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for i := countdown; i > 0; i-- {
				fmt.Fprintf(cmd.OutOrStdout(), "Replay starts in %d...\n", i)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(time.Second):
				}
			}

			outcome, err := scheduler.Run(ctx, events)
			if err != nil {
				return fmt.Errorf("replay episode: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replay %s (%d events)\n", outcome, len(events))
			return nil
		},
	}

	cmd.Flags().IntVar(&countdown, "countdown", -1, "Seconds to wait before replay starts (-1 uses the configured value)")
	cmd.Flags().DurationVar(&keyDelay, "key-delay", 0, "Pause after each keyboard dispatch (0 uses the configured value)")
	return cmd
}

// resolveEpisodePath picks the explicit argument, or follows latest.epc in
// the data directory.
func resolveEpisodePath(dataDir string, args []string) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	link := filepath.Join(dataDir, capture.LatestName)
	target, err := os.Readlink(link)
	if err != nil {
		return "", fmt.Errorf("no episode given and %s not found; record one first", link)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(dataDir, target)
	}
	return target, nil
}
