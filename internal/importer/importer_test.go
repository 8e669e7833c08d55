package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdavid/mailvault/internal/imap"
	"github.com/vdavid/mailvault/internal/metrics"
	"github.com/vdavid/mailvault/internal/sqlite"
	"github.com/vdavid/mailvault/internal/store"
	"github.com/vdavid/mailvault/internal/testutil"
)

const account = "me@example.com"

type fakeClient struct {
	order        []string
	folders      map[string]map[uint32][]byte
	unselectable map[string]bool
	gaps         map[uint32]bool
	selected     string
	fetches      [][]uint32
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		folders:      map[string]map[uint32][]byte{},
		unselectable: map[string]bool{},
		gaps:         map[uint32]bool{},
	}
}

func (c *fakeClient) add(folder string, uid uint32, raw []byte) {
	if _, ok := c.folders[folder]; !ok {
		c.order = append(c.order, folder)
		c.folders[folder] = map[uint32][]byte{}
	}
	c.folders[folder][uid] = raw
}

func (c *fakeClient) ListFolders() ([]string, error) {
	return c.order, nil
}

func (c *fakeClient) SelectFolder(name string) error {
	if c.unselectable[name] {
		return &imap.FolderSelectError{Folder: name, Err: errors.New("NO such mailbox")}
	}
	c.selected = name
	return nil
}

func (c *fakeClient) SearchUIDsSince(lastUID uint32) ([]uint32, error) {
	var uids []uint32
	for uid := range c.folders[c.selected] {
		if uid > lastUID {
			uids = append(uids, uid)
		}
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	return uids, nil
}

func (c *fakeClient) FetchBatch(uids []uint32) (map[uint32]*imap.FetchedMessage, error) {
	c.fetches = append(c.fetches, append([]uint32(nil), uids...))
	result := map[uint32]*imap.FetchedMessage{}
	for _, uid := range uids {
		raw, ok := c.folders[c.selected][uid]
		if !ok || c.gaps[uid] {
			continue
		}
		result[uid] = &imap.FetchedMessage{
			UID:          uid,
			Raw:          raw,
			Flags:        []string{`\Seen`},
			InternalDate: time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC),
			Size:         int64(len(raw)),
		}
	}
	return result, nil
}

type recordingReporter struct {
	events []string
}

func (r *recordingReporter) FoldersSelected(folders []string) {
	r.events = append(r.events, fmt.Sprintf("folders %v", folders))
}

func (r *recordingReporter) FolderStarted(folder string) {
	r.events = append(r.events, "start "+folder)
}

func (r *recordingReporter) FolderSkipped(folder string, _ error) {
	r.events = append(r.events, "skip "+folder)
}

func (r *recordingReporter) NoNewMessages(folder string) {
	r.events = append(r.events, "empty "+folder)
}

func (r *recordingReporter) BatchDone(folder string, processed int, checkpoint uint32) {
	r.events = append(r.events, fmt.Sprintf("batch %s %d %d", folder, processed, checkpoint))
}

func (r *recordingReporter) LimitReached(folder string) {
	r.events = append(r.events, "limit "+folder)
}

func (r *recordingReporter) Finished(result *Result) {
	r.events = append(r.events, fmt.Sprintf("done %d", result.Processed))
}

func sample(n int) []byte {
	sentAt := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	return testutil.SampleMessage(
		fmt.Sprintf("<m%d@example.com>", n),
		fmt.Sprintf("Message %d", n),
		"Alice <alice@example.com>",
		"Bob <bob@example.com>",
		fmt.Sprintf("body %d", n),
		sentAt,
	)
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRun(t *testing.T) {
	ctx := context.Background()

	t.Run("imports all folders and advances checkpoints", func(t *testing.T) {
		client := newFakeClient()
		client.add("INBOX", 3, sample(1))
		client.add("INBOX", 6, sample(2))
		client.add("INBOX", 7, sample(3))
		client.add("Archive", 1, sample(4))
		s := newStore(t)
		reporter := &recordingReporter{}

		result, err := New(client, s, Options{AccountEmail: account, BatchSize: 2, Resume: true}, reporter).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 4, result.Processed)
		assert.Equal(t, 4, result.Created)
		assert.Equal(t, 2, result.Folders)
		assert.Equal(t, [][]uint32{{3, 6}, {7}, {1}}, client.fetches)

		inbox, err := s.GetCheckpoint(ctx, account, "INBOX")
		require.NoError(t, err)
		assert.Equal(t, uint32(7), inbox)

		assert.Equal(t, []string{
			"folders [INBOX Archive]",
			"start INBOX",
			"batch INBOX 2 6",
			"batch INBOX 3 7",
			"start Archive",
			"batch Archive 1 1",
			"done 4",
		}, reporter.events)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Messages)
		assert.Equal(t, 4, stats.Placements)
		assert.Equal(t, 2, stats.Mailboxes)
	})

	t.Run("second run finds nothing new", func(t *testing.T) {
		client := newFakeClient()
		client.add("INBOX", 1, sample(1))
		s := newStore(t)
		opts := Options{AccountEmail: account, Resume: true}

		_, err := New(client, s, opts, &recordingReporter{}).Run(ctx)
		require.NoError(t, err)

		reporter := &recordingReporter{}
		result, err := New(client, s, opts, reporter).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 0, result.Processed)
		assert.Contains(t, reporter.events, "empty INBOX")
	})

	t.Run("rescan without resume counts duplicates", func(t *testing.T) {
		client := newFakeClient()
		client.add("INBOX", 1, sample(1))
		client.add("INBOX", 2, sample(2))
		s := newStore(t)

		_, err := New(client, s, Options{AccountEmail: account, Resume: true}, &recordingReporter{}).Run(ctx)
		require.NoError(t, err)

		result, err := New(client, s, Options{AccountEmail: account, Resume: false}, &recordingReporter{}).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 0, result.Created)
		assert.Equal(t, 2, result.Duplicates)

		checkpoint, err := s.GetCheckpoint(ctx, account, "INBOX")
		require.NoError(t, err)
		assert.Equal(t, uint32(2), checkpoint)
	})

	t.Run("same message in two folders is stored once", func(t *testing.T) {
		client := newFakeClient()
		client.add("INBOX", 5, sample(1))
		client.add("INBOX", 6, sample(2))
		client.add("Archive", 9, sample(1))
		s := newStore(t)

		result, err := New(client, s, Options{AccountEmail: account, Resume: true}, &recordingReporter{}).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Processed)
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 1, result.Duplicates)

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Messages)
		assert.Equal(t, 3, stats.Placements)

		inbox, err := s.GetCheckpoint(ctx, account, "INBOX")
		require.NoError(t, err)
		assert.Equal(t, uint32(6), inbox)

		archive, err := s.GetCheckpoint(ctx, account, "Archive")
		require.NoError(t, err)
		assert.Equal(t, uint32(9), archive)
	})

	t.Run("skips unselectable folder", func(t *testing.T) {
		client := newFakeClient()
		client.add("[Gmail]", 1, sample(1))
		client.add("INBOX", 1, sample(2))
		client.unselectable["[Gmail]"] = true
		s := newStore(t)
		before := prom.ToFloat64(metrics.FoldersSkipped)

		result, err := New(client, s, Options{AccountEmail: account, Resume: true}, &recordingReporter{}).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, []string{"[Gmail]"}, result.SkippedFolders)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, before+1, prom.ToFloat64(metrics.FoldersSkipped))
	})

	t.Run("skips fetch gaps but still advances checkpoint", func(t *testing.T) {
		client := newFakeClient()
		client.add("INBOX", 1, sample(1))
		client.add("INBOX", 2, sample(2))
		client.add("INBOX", 3, sample(3))
		client.gaps[2] = true
		s := newStore(t)
		before := prom.ToFloat64(metrics.FetchGaps)

		result, err := New(client, s, Options{AccountEmail: account, Resume: true}, &recordingReporter{}).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 1, result.Gaps)
		assert.Equal(t, before+1, prom.ToFloat64(metrics.FetchGaps))

		checkpoint, err := s.GetCheckpoint(ctx, account, "INBOX")
		require.NoError(t, err)
		assert.Equal(t, uint32(3), checkpoint)
	})

	t.Run("folder allow-list keeps server order", func(t *testing.T) {
		client := newFakeClient()
		client.add("INBOX", 1, sample(1))
		client.add("Sent", 1, sample(2))
		client.add("Archive", 1, sample(3))
		s := newStore(t)
		reporter := &recordingReporter{}

		result, err := New(client, s, Options{AccountEmail: account, Folders: []string{"Archive", "INBOX", "Missing"}, Resume: true}, reporter).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, "folders [INBOX Archive]", reporter.events[0])
	})

	t.Run("per-folder limit stops early", func(t *testing.T) {
		client := newFakeClient()
		for uid := uint32(1); uid <= 5; uid++ {
			client.add("INBOX", uid, sample(int(uid)))
		}
		s := newStore(t)
		reporter := &recordingReporter{}

		result, err := New(client, s, Options{AccountEmail: account, BatchSize: 2, MaxPerFolder: 3, Resume: true}, reporter).Run(ctx)
		require.NoError(t, err)

		assert.Equal(t, 3, result.Processed)
		assert.Contains(t, reporter.events, "limit INBOX")

		checkpoint, err := s.GetCheckpoint(ctx, account, "INBOX")
		require.NoError(t, err)
		assert.Equal(t, uint32(3), checkpoint)
	})

	t.Run("canceled context stops before the first batch", func(t *testing.T) {
		client := newFakeClient()
		client.add("INBOX", 1, sample(1))
		s := newStore(t)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := New(client, s, Options{AccountEmail: account, Resume: true}, &recordingReporter{}).Run(canceled)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, client.fetches)
	})

	t.Run("storage failure is a storage error", func(t *testing.T) {
		client := newFakeClient()
		client.add("INBOX", 1, sample(1))
		s := newStore(t)
		require.NoError(t, s.Close())

		_, err := New(client, s, Options{AccountEmail: account, Resume: true}, &recordingReporter{}).Run(ctx)

		var storageErr *store.StorageError
		assert.True(t, errors.As(err, &storageErr), "expected StorageError, got %v", err)
	})
}

func TestRunAgainstIMAPServer(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	server.CreateFolder(t, "Work")
	server.AddRawMessage(t, "Work", sample(1), `\Seen`)
	server.AddRawMessage(t, "Work", sample(2))

	client, err := imap.Connect(imap.Config{
		Host:     server.Host,
		Port:     server.Port,
		Username: server.Username(),
		Password: server.Password(),
	})
	require.NoError(t, err)
	defer client.Close()

	s := newStore(t)
	ctx := context.Background()

	result, err := New(client, s, Options{AccountEmail: account, Provider: "test", Folders: []string{"Work"}, Resume: true}, &recordingReporter{}).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 2, result.Created)

	checkpoints, err := s.ListCheckpoints(ctx, account)
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	assert.Equal(t, "Work", checkpoints[0].MailboxName)
	assert.Equal(t, uint32(2), checkpoints[0].LastUID)
}

func TestFilterFolders(t *testing.T) {
	folders := []string{"INBOX", "Sent", "Archive"}

	assert.Equal(t, folders, filterFolders(folders, nil))
	assert.Equal(t, []string{"Sent"}, filterFolders(folders, []string{"Sent"}))
	assert.Nil(t, filterFolders(folders, []string{"Nope"}))
}
