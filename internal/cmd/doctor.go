package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/offlinefirst/episodic/pkg/input"
	"github.com/offlinefirst/episodic/pkg/screen"
)

func newDoctorCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check capture backends, permissions and storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.Init(cmd.ErrOrStderr()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			fmt.Fprintln(out, "episodic doctor")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			fmt.Fprintf(out, "Config: %s\n", app.Config.Source)
			fmt.Fprintf(out, "Data dir: %s\n", app.Config.Paths.DataDir)

			if err := ensureWritable(app.Config.Paths.DataDir); err != nil {
				fmt.Fprintf(out, "Data dir writable: FAILED (%v)\n", err)
			} else {
				fmt.Fprintln(out, "Data dir writable: OK")
			}

			screenEnv := screen.DetectEnvironment()
			printEnvironment(out, "Screen capture", screenEnv.Provider, screenEnv.Available, screenEnv.Permission, screenEnv.Message, screenEnv.Guidance)

			inputEnv := input.DetectEnvironment()
			printEnvironment(out, "Input listening", inputEnv.Provider, inputEnv.Available, inputEnv.Permission, inputEnv.Message, inputEnv.Guidance)

			return nil
		},
	}
}

func printEnvironment(out io.Writer, name, provider string, available bool, permission, message, guidance string) {
	state := "OK"
	if !available {
		state = "UNAVAILABLE"
	}
	fmt.Fprintf(out, "%s: %s (provider=%s, permission=%s)\n", name, state, provider, permission)
	if message != "" {
		fmt.Fprintf(out, "  %s\n", message)
	}
	if guidance != "" {
		fmt.Fprintf(out, "  Hint: %s\n", guidance)
	}
}

func ensureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	file, err := os.CreateTemp(dir, "doctor-write-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	path := file.Name()
	if err := file.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove temp file: %w", err)
	}
	return nil
}
