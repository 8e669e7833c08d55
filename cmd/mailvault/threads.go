package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/vdavid/mailvault/internal/threading"
)

func newRebuildThreadsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "rebuild-threads",
		Short: "Group stored messages into threads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			backend, err := openBackend(ctx, cfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := backend.Close(); err != nil {
					log.Printf("Warning: failed to close store: %v", err)
				}
			}()

			result, err := threading.NewBuilder(backend).Rebuild(ctx, limit)
			if err != nil {
				return fmt.Errorf("failed to rebuild threads: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Threads rebuilt. scanned=%d reassigned=%d threads=%d\n",
				result.Scanned, result.Assigned, result.Threads)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many messages (0 = all)")

	return cmd
}
