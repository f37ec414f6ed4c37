package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/episodic/pkg/container"
	"github.com/offlinefirst/episodic/pkg/episode"
)

func newInfoCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "info <episode>",
		Short: "Summarise an episode file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Init(cmd.ErrOrStderr()); err != nil {
				return err
			}

			reader, err := container.OpenReader(args[0], container.ReaderOptions{Logger: app.Logger})
			if err != nil {
				return fmt.Errorf("open episode: %w", err)
			}
			defer reader.Close()

			var meta episode.Metadata
			err = reader.IterMetadata(func(m container.Metadata) error {
				if m.Name == episode.MetadataName {
					meta = episode.MetadataFromEntries(m.Entries)
					return container.ErrStopIteration
				}
				return nil
			})
			if err != nil {
				return fmt.Errorf("read episode metadata: %w", err)
			}

			counts := make(map[string]uint64)
			var firstNS, lastNS int64
			var seen bool
			err = reader.IterMessages(func(ch container.Channel, msg container.Message) error {
				counts[ch.Topic]++
				if !seen || msg.LogTime < firstNS {
					firstNS = msg.LogTime
				}
				if !seen || msg.LogTime > lastNS {
					lastNS = msg.LogTime
				}
				seen = true
				return nil
			})
			if err != nil {
				return fmt.Errorf("read episode records: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Episode: %s\n", args[0])
			fmt.Fprintf(out, "  id: %s\n", meta.ID)
			if meta.Context != "" {
				fmt.Fprintf(out, "  context: %s\n", meta.Context)
			}
			fmt.Fprintf(out, "  hz: %g\n", meta.Hz)
			if !meta.CreatedAt.IsZero() {
				fmt.Fprintf(out, "  created: %s\n", meta.CreatedAt.Format(time.RFC3339))
			}
			if seen {
				fmt.Fprintf(out, "  duration: %s\n", time.Duration(lastNS-firstNS).Round(time.Millisecond))
			}

			topics := make([]string, 0, len(counts))
			for topic := range counts {
				topics = append(topics, topic)
			}
			sort.Strings(topics)
			fmt.Fprintln(out, "  topics:")
			for _, topic := range topics {
				fmt.Fprintf(out, "    %-18s %d\n", topic, counts[topic])
			}
			return nil
		},
	}
}
