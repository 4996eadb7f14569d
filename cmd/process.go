package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/acasal/alertd/config"
	"github.com/acasal/alertd/core/dispatch"
	"github.com/acasal/alertd/core/match"
	"github.com/acasal/alertd/infra/logger"
	"github.com/acasal/alertd/infra/store"
)

var processSource string

var processCmd = &cobra.Command{
	Use:   "process <base64-payload>",
	Short: "Decode and dispatch a single payload without a broker",
	Args:  cobra.ExactArgs(1),
	RunE:  processPayload,
}

func init() {
	processCmd.Flags().StringVar(&processSource, "source", "cli", "source identifier recorded on the alert")
	rootCmd.AddCommand(processCmd)
}

func processPayload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("process", cfg.Logging.Level)

	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()
	if cfg.Store.SeedFile != "" {
		rs, err := config.LoadResources(cfg.Store.SeedFile)
		if err != nil {
			return fmt.Errorf("seed file: %w", err)
		}
		if err := st.SeedResources(cmd.Context(), rs); err != nil {
			return fmt.Errorf("seed resources: %w", err)
		}
	}

	timeout := time.Duration(cfg.Dispatch.PersistTimeoutSeconds) * time.Second
	engine, err := dispatch.New(st, match.New(st), logg, nil, nil, timeout)
	if err != nil {
		return fmt.Errorf("dispatch engine: %w", err)
	}

	out := engine.ProcessArmored(cmd.Context(), processSource, args[0])
	fmt.Println(out.Summary())
	if out.Kind == dispatch.OutcomeRejected {
		return fmt.Errorf("payload rejected")
	}
	return nil
}
