package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/acasal/alertd/config"
	"github.com/acasal/alertd/core/model"
	corestore "github.com/acasal/alertd/core/store"
	"github.com/acasal/alertd/infra/store"
	"github.com/acasal/alertd/pkg/export"
)

var (
	exportFormat string
	exportState  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the alert history to stdout",
	RunE:  exportAlerts,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or json")
	exportCmd.Flags().StringVar(&exportState, "state", "", "only include alerts in this state")
	rootCmd.AddCommand(exportCmd)
}

func exportAlerts(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	st, err := store.New(cfg.Store)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	f := corestore.AlertFilter{}
	if exportState != "" {
		state := model.AlertState(exportState)
		if !state.Valid() {
			return fmt.Errorf("unknown state %q", exportState)
		}
		f.State = state
	}
	alerts, err := st.ListAlerts(cmd.Context(), f)
	if err != nil {
		return err
	}

	switch exportFormat {
	case "csv":
		return export.WriteCSV(os.Stdout, alerts)
	case "json":
		return export.WriteJSON(os.Stdout, alerts)
	default:
		return fmt.Errorf("unknown format %q", exportFormat)
	}
}
