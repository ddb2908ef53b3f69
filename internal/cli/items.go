package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/threadscout/internal/models"
	"github.com/hoanghai1803/threadscout/internal/storage"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Review stored items",
	Long:  `List accepted items stored in the local database and move them through the review workflow.`,
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored items, newest first",
	Args:  cobra.NoArgs,
	RunE:  runItemsList,
}

var itemsStatusCmd = &cobra.Command{
	Use:   "status [item-id] [status]",
	Short: "Set the review status of an item",
	Long:  `Status is one of new, reviewed, in_progress, implemented or rejected.`,
	Args:  cobra.ExactArgs(2),
	RunE:  runItemsStatus,
}

var (
	itemsStatusFilter   string
	itemsPipelineFilter string
	itemsLimit          int
)

func init() {
	itemsListCmd.Flags().StringVar(&itemsStatusFilter, "status", "", "only items with this status")
	itemsListCmd.Flags().StringVar(&itemsPipelineFilter, "pipeline", "", "only items from this pipeline")
	itemsListCmd.Flags().IntVarP(&itemsLimit, "limit", "n", storage.DefaultListLimit, "maximum number of items")

	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsStatusCmd)
	rootCmd.AddCommand(itemsCmd)
}

func runItemsList(cmd *cobra.Command, _ []string) error {
	status := models.ItemStatus(itemsStatusFilter)
	if status != "" && !status.Valid() {
		return fmt.Errorf("%w %q", storage.ErrInvalidStatus, itemsStatusFilter)
	}

	e, closeEnv, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv()

	items, err := e.store.ListItems(cmd.Context(), storage.ItemFilter{
		Status:   status,
		Pipeline: itemsPipelineFilter,
		Limit:    itemsLimit,
	})
	if err != nil {
		return fmt.Errorf("listing items: %w", err)
	}

	if len(items) == 0 {
		cmd.Println("No items found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPIPELINE\tSTATUS\tSOURCE\tTITLE")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", it.ItemID, it.Pipeline, it.Status, it.SourceTag, models.Snippet(it.Title, 60))
	}
	return tw.Flush()
}

func runItemsStatus(cmd *cobra.Command, args []string) error {
	itemID, status := args[0], models.ItemStatus(args[1])

	e, closeEnv, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer closeEnv()

	if err := e.store.UpdateItemStatus(cmd.Context(), itemID, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("item %s not found", itemID)
		}
		return err
	}

	cmd.Printf("Item %s is now %s.\n", itemID, status)
	return nil
}
