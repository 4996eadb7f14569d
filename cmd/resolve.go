package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/acasal/alertd/config"
	"github.com/acasal/alertd/core/dispatch"
	"github.com/acasal/alertd/core/match"
	"github.com/acasal/alertd/infra/logger"
	"github.com/acasal/alertd/infra/store"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <alert-id>",
	Short: "Mark an alert resolved and release its resource",
	Args:  cobra.ExactArgs(1),
	RunE:  resolveAlert,
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}

func resolveAlert(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid alert id %q", args[0])
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("resolve", cfg.Logging.Level)

	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	timeout := time.Duration(cfg.Dispatch.PersistTimeoutSeconds) * time.Second
	engine, err := dispatch.New(st, match.New(st), logg, nil, nil, timeout)
	if err != nil {
		return fmt.Errorf("dispatch engine: %w", err)
	}

	resolved, err := engine.Resolve(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Println(resolveMessage(id, resolved))
	return nil
}

// resolveMessage mirrors the engine's semantics: a false result covers
// both unknown and already-resolved alerts.
func resolveMessage(id int64, resolved bool) string {
	if resolved {
		return fmt.Sprintf("alert %d resolved", id)
	}
	return fmt.Sprintf("alert %d not found or already resolved", id)
}
