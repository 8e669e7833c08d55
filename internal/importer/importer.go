package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vdavid/mailvault/internal/imap"
	"github.com/vdavid/mailvault/internal/metrics"
	"github.com/vdavid/mailvault/internal/normalize"
	"github.com/vdavid/mailvault/internal/parser"
	"github.com/vdavid/mailvault/internal/store"
)

// DefaultBatchSize is used when Options.BatchSize is not positive.
const DefaultBatchSize = 200

// MailboxClient is the part of an IMAP session the importer uses.
type MailboxClient interface {
	ListFolders() ([]string, error)
	SelectFolder(name string) error
	SearchUIDsSince(lastUID uint32) ([]uint32, error)
	FetchBatch(uids []uint32) (map[uint32]*imap.FetchedMessage, error)
}

// Options controls one import run.
type Options struct {
	AccountEmail string
	Provider     string
	// Folders limits the run to these names. Empty means all folders.
	Folders      []string
	BatchSize    int
	MaxPerFolder int
	// Resume searches from the stored checkpoint. When false every folder is
	// rescanned from the start; stored messages are then only re-placed.
	Resume bool
}

// Result summarizes a run.
type Result struct {
	Processed      int
	Created        int
	Duplicates     int
	Gaps           int
	SkippedFolders []string
	Folders        int
}

// Importer copies messages from one account into a store.
type Importer struct {
	client   MailboxClient
	store    store.Store
	opts     Options
	reporter Reporter
}

// New creates an importer. A nil reporter logs progress.
func New(client MailboxClient, s store.Store, opts Options, reporter Reporter) *Importer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if reporter == nil {
		reporter = LogReporter{}
	}
	return &Importer{
		client:   client,
		store:    s,
		opts:     opts,
		reporter: reporter,
	}
}

// Run imports every selected folder in server order. Storage failures stop
// the run and come back as *store.StorageError. The partial result is
// returned alongside any error.
func (i *Importer) Run(ctx context.Context) (*Result, error) {
	result := &Result{}

	folders, err := i.client.ListFolders()
	if err != nil {
		return result, fmt.Errorf("failed to list folders: %w", err)
	}

	folders = filterFolders(folders, i.opts.Folders)
	i.reporter.FoldersSelected(folders)

	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := i.importFolder(ctx, folder, result); err != nil {
			return result, err
		}
	}

	i.reporter.Finished(result)
	return result, nil
}

func (i *Importer) importFolder(ctx context.Context, folder string, result *Result) error {
	i.reporter.FolderStarted(folder)

	if err := i.client.SelectFolder(folder); err != nil {
		var selectErr *imap.FolderSelectError
		if !errors.As(err, &selectErr) {
			return err
		}
		metrics.FoldersSkipped.Inc()
		result.SkippedFolders = append(result.SkippedFolders, folder)
		i.reporter.FolderSkipped(folder, err)
		return nil
	}
	result.Folders++

	if _, err := i.store.EnsureAccountAndMailbox(ctx, i.opts.AccountEmail, i.opts.Provider, folder); err != nil {
		return &store.StorageError{Op: "ensure mailbox", Err: err}
	}

	watermark, err := i.store.GetCheckpoint(ctx, i.opts.AccountEmail, folder)
	if err != nil {
		return &store.StorageError{Op: "get checkpoint", Err: err}
	}
	checkpointGauge := metrics.CheckpointUID.WithLabelValues(i.opts.AccountEmail, folder)
	checkpointGauge.Set(float64(watermark))

	searchFrom := watermark
	if !i.opts.Resume {
		searchFrom = 0
	}

	uids, err := i.client.SearchUIDsSince(searchFrom)
	if err != nil {
		return fmt.Errorf("failed to search folder %s: %w", folder, err)
	}
	if len(uids) == 0 {
		i.reporter.NoNewMessages(folder)
		return nil
	}

	processedInFolder := 0
	for start := 0; start < len(uids); start += i.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+i.opts.BatchSize, len(uids))
		batchStart := time.Now()

		fetched, err := i.client.FetchBatch(uids[start:end])
		if err != nil {
			return fmt.Errorf("failed to fetch batch from %s: %w", folder, err)
		}

		batchMax := watermark
		for _, uid := range uids[start:end] {
			msg, ok := fetched[uid]
			if !ok {
				log.Printf("Warning: %s: %v", folder, &imap.FetchGapError{UID: uid})
				metrics.FetchGaps.Inc()
				result.Gaps++
				continue
			}

			created, err := i.storeMessage(ctx, folder, msg)
			if err != nil {
				return err
			}

			result.Processed++
			processedInFolder++
			if created {
				result.Created++
				metrics.MessagesImported.WithLabelValues(metrics.ResultCreated).Inc()
			} else {
				result.Duplicates++
				metrics.MessagesImported.WithLabelValues(metrics.ResultDuplicate).Inc()
			}
			batchMax = max(batchMax, uid)

			if i.limitReached(processedInFolder) {
				break
			}
		}

		if batchMax > watermark {
			if err := i.store.SetCheckpoint(ctx, i.opts.AccountEmail, folder, batchMax); err != nil {
				return &store.StorageError{Op: "set checkpoint", Err: err}
			}
			watermark = batchMax
			checkpointGauge.Set(float64(watermark))
		}

		metrics.BatchDuration.Observe(time.Since(batchStart).Seconds())
		i.reporter.BatchDone(folder, processedInFolder, watermark)

		if i.limitReached(processedInFolder) {
			i.reporter.LimitReached(folder)
			break
		}
	}

	return nil
}

func (i *Importer) storeMessage(ctx context.Context, folder string, msg *imap.FetchedMessage) (bool, error) {
	parsed := parser.Parse(msg.Raw)
	for _, w := range parsed.Warnings {
		log.Printf("Warning: %s UID %d: %s", folder, msg.UID, w)
	}

	var internalDate *time.Time
	if !msg.InternalDate.IsZero() {
		d := msg.InternalDate.UTC()
		internalDate = &d
	}

	loaded, err := store.Load(ctx, i.store, &store.ImportRecord{
		AccountEmail: i.opts.AccountEmail,
		Provider:     i.opts.Provider,
		MailboxName:  folder,
		UID:          msg.UID,
		Flags:        msg.Flags,
		InternalDate: internalDate,
		Email:        normalize.Normalize(parsed, msg.Raw, msg.Size),
	})
	if err != nil {
		return false, err
	}

	return loaded.Created, nil
}

func (i *Importer) limitReached(processedInFolder int) bool {
	return i.opts.MaxPerFolder > 0 && processedInFolder >= i.opts.MaxPerFolder
}

// filterFolders keeps the server order of folders and drops names not in allow.
func filterFolders(folders, allow []string) []string {
	if len(allow) == 0 {
		return folders
	}

	allowed := make(map[string]bool, len(allow))
	for _, name := range allow {
		allowed[name] = true
	}

	var result []string
	for _, f := range folders {
		if allowed[f] {
			result = append(result, f)
		}
	}
	return result
}
