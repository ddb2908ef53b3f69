package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Show recent cycle runs",
	Args:  cobra.NoArgs,
	RunE:  runCycles,
}

var cyclesLimit int

func init() {
	cyclesCmd.Flags().IntVarP(&cyclesLimit, "limit", "n", 20, "maximum number of cycles")
	rootCmd.AddCommand(cyclesCmd)
}

func runCycles(cmd *cobra.Command, _ []string) error {
	e, closeEnv, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv()

	cycles, err := e.store.RecentCycles(cmd.Context(), cyclesLimit)
	if err != nil {
		return fmt.Errorf("listing cycles: %w", err)
	}

	if len(cycles) == 0 {
		cmd.Println("No cycles recorded yet.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPIPELINE\tFETCHED\tNEW\tACCEPTED\tFAILED\tDURATION")
	for _, c := range cycles {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d/%d\t%s\n",
			c.StartedAt.Local().Format(time.DateTime), c.Pipeline, c.Fetched, c.New,
			c.Accepted, c.SourcesFailed, c.Sources, c.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}
