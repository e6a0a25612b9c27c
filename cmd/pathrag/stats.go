package pathrag

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/soundprediction/pathrag/pkg/storage"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statsOutput string

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print node and edge counts of the entity graph",
	Long: `Print node, edge and component counts of the chunk_entity_relation graph.
For a durable backend the backend's own counts are printed as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, _, err := openClient(ctx)
		if err != nil {
			return err
		}
		defer client.Close()

		stats, err := client.Stats(ctx)
		if err != nil {
			return err
		}
		return writeStats(cmd.OutOrStdout(), stats, statsOutput)
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsOutput, "output", "o", "yaml", "output format (yaml, json)")
}

func writeStats(w io.Writer, stats *storage.GraphStats, format string) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(stats); err != nil {
			return fmt.Errorf("failed to encode stats: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	default:
		return fmt.Errorf("unknown output format %q (supported: yaml, json)", format)
	}
}
