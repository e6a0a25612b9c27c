package pathrag

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/soundprediction/pathrag"
	"github.com/soundprediction/pathrag/pkg/config"
	"github.com/soundprediction/pathrag/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "pathrag",
		Short: "PathRAG: storage administration tool",
		Long: `pathrag inspects and maintains the stores of a PathRAG working directory:
key-value namespaces, vector namespaces and the entity graph with its durable
backend.`,
		SilenceUsage: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.pathrag.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("working-dir", "", "working directory holding the stores")
	rootCmd.PersistentFlags().String("graph-storage", "", "graph backend (memory, ladybug, neo4j)")

	// Bind flags to viper
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("working_dir", rootCmd.PersistentFlags().Lookup("working-dir"))
	viper.BindPFlag("storage.graph", rootCmd.PersistentFlags().Lookup("graph-storage"))

	rootCmd.AddCommand(statsCmd, deleteEntityCmd, rehydrateCmd, verifyCmd)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".pathrag" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pathrag")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// openClient loads configuration and opens every store of the working
// directory.
func openClient(ctx context.Context) (*pathrag.Client, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log configuration: %w", err)
	}

	emb, err := pathrag.NewEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	client, err := pathrag.NewClient(ctx, cfg, emb, nil, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open working directory %s: %w", cfg.WorkingDir, err)
	}
	return client, log, nil
}
