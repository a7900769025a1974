package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dixie/callvehicle/config"
	"github.com/dixie/callvehicle/core/options"
)

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "Show the recognized options and their effective values",
	RunE:  optionsRun,
}

func init() {
	rootCmd.AddCommand(optionsCmd)
}

func optionsRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	raw, err := json.Marshal(cfg.Options)
	if err != nil {
		return err
	}
	var effective map[string]any
	if err := json.Unmarshal(raw, &effective); err != nil {
		return err
	}
	for _, e := range options.Table {
		fmt.Printf("%-22s %v\n", e.Key, effective[e.Key])
		fmt.Printf("  %s: %s\n", e.Name, e.Description)
	}
	return nil
}
