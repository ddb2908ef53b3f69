package cli

import (
	"time"

	"github.com/spf13/cobra"
)

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Run one cycle of every pipeline and exit",
	Args:  cobra.NoArgs,
	RunE:  runRunOnce,
}

func init() {
	rootCmd.AddCommand(runOnceCmd)
}

func runRunOnce(cmd *cobra.Command, _ []string) error {
	e, closeEnv, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv()

	if err := e.cfg.CheckCredentials(); err != nil {
		return err
	}

	a, err := newApp(e)
	if err != nil {
		return err
	}
	if len(a.Pipelines) == 0 {
		cmd.Println("No pipelines configured.")
		return nil
	}

	reports, err := a.Scheduler.RunOnce(cmd.Context())
	if err != nil {
		return err
	}

	for _, r := range reports {
		cmd.Printf("%s: fetched %d, new %d, accepted %d, failed sources %d/%d (%s)\n",
			r.Pipeline, r.Fetched, r.New, r.Accepted, r.SourcesFailed, r.Sources, r.Duration().Round(time.Millisecond))
		for name, c := range r.Dispatch {
			cmd.Printf("  %s: %d/%d delivered\n", name, c.Succeeded, c.Attempted)
		}
	}
	return nil
}
