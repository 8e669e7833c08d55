package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/vdavid/mailvault/internal/display"
	"github.com/vdavid/mailvault/internal/models"
)

type statsOutput struct {
	Stats       *models.Stats        `json:"stats"`
	Checkpoints []*models.Checkpoint `json:"checkpoints"`
}

func newStatsCmd(a *app) *cobra.Command {
	var (
		accountEmail string
		jsonOutput   bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show archive counts and folder checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			backend, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(); err != nil {
					log.Printf("Warning: failed to close store: %v", err)
				}
			}()

			stats, err := backend.Stats(ctx)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			checkpoints, err := backend.ListCheckpoints(ctx, accountEmail)
			if err != nil {
				return fmt.Errorf("failed to list checkpoints: %w", err)
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statsOutput{Stats: stats, Checkpoints: checkpoints})
			}

			display.Stats(cmd.OutOrStdout(), stats, checkpoints)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountEmail, "account", "", "Only show checkpoints of this account email")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}
