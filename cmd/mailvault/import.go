package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vdavid/mailvault/internal/config"
	"github.com/vdavid/mailvault/internal/display"
	"github.com/vdavid/mailvault/internal/imap"
	"github.com/vdavid/mailvault/internal/importer"
	"github.com/vdavid/mailvault/internal/metrics"
)

type importFlags struct {
	accountPath string
	folders     string
	batch       int
	max         int
	resume      bool
	metricsAddr string
}

func newImportCmd(a *app) *cobra.Command {
	f := &importFlags{}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import new messages from an IMAP account",
		Long: `Import every folder of the account (or the ones named by --folders),
continuing from the last stored UID of each folder. Re-running is safe.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, a, f)
		},
	}

	cmd.Flags().StringVar(&f.accountPath, "account", "", "Account file (JSON, YAML or TOML)")
	cmd.Flags().StringVar(&f.folders, "folders", "", "Comma-separated folders to import (default: all)")
	cmd.Flags().IntVar(&f.batch, "batch", importer.DefaultBatchSize, "Messages fetched per round trip")
	cmd.Flags().IntVar(&f.max, "max", 0, "Max messages per folder (0 = no limit)")
	cmd.Flags().BoolVar(&f.resume, "resume", true, "Continue from the stored checkpoint (false rescans every folder)")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runImport(cmd *cobra.Command, a *app, f *importFlags) error {
	account, err := config.LoadAccount(f.accountPath)
	if err != nil {
		return err
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	password, err := account.ResolvePassword(cfg, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	metricsAddr := f.metricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}
	if metricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, metricsAddr); err != nil {
				log.Printf("Warning: %v", err)
			}
		}()
	}

	backend, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Printf("Warning: failed to close store: %v", err)
		}
	}()

	client, err := imap.Connect(imap.Config{
		Host:     account.IMAP.Host,
		Port:     account.IMAP.Port,
		SSL:      account.IMAP.SSL,
		Username: account.IMAP.Username,
		Password: password,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	console := display.NewConsole(cmd.OutOrStdout())
	console.Start(account.AccountEmail, cfg.Backend)

	imp := importer.New(client, backend, importer.Options{
		AccountEmail: account.AccountEmail,
		Provider:     account.Provider,
		Folders:      splitFolders(f.folders),
		BatchSize:    f.batch,
		MaxPerFolder: f.max,
		Resume:       f.resume,
	}, console)

	result, err := imp.Run(ctx)
	if err != nil {
		console.Failed(err, result.Processed)
		return fmt.Errorf("import failed: %w", err)
	}

	return nil
}

func splitFolders(s string) []string {
	var folders []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			folders = append(folders, name)
		}
	}
	return folders
}
