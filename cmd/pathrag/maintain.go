package pathrag

import (
	"errors"
	"fmt"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/spf13/cobra"
)

var entityName string

var deleteEntityCmd = &cobra.Command{
	Use:   "delete-entity",
	Short: "Delete an entity, its relations and its vectors",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, log, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.DeleteByEntity(ctx, entityName); err != nil {
			if storage.IsDurableWriteError(err) {
				log.Warn("Entity removed from memory but the durable backend failed; run verify", "error", err)
			}
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", entityName)
		return nil
	},
}

var rehydrateCmd = &cobra.Command{
	Use:   "rehydrate",
	Short: "Rebuild the graph snapshot from the durable backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, _, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		if err := client.Rehydrate(ctx); err != nil {
			return err
		}
		if err := client.Stores().Graph.IndexDoneCallback(ctx); err != nil {
			return err
		}
		stats, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rehydrated %d nodes and %d edges\n", stats.NodeCount, stats.EdgeCount)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that the in-memory graph matches the durable backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, _, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		err = client.Verify(ctx)
		switch {
		case err == nil:
			fmt.Fprintln(cmd.OutOrStdout(), "consistent")
			return nil
		case errors.Is(err, storage.ErrInconsistent):
			fmt.Fprintln(cmd.OutOrStdout(), "inconsistent; run rehydrate to rebuild memory from the backend")
			return err
		default:
			return err
		}
	},
}

func init() {
	deleteEntityCmd.Flags().StringVar(&entityName, "entity", "", "entity name to delete")
	deleteEntityCmd.MarkFlagRequired("entity")
}
