package imap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailvault/internal/testutil"
)

func connectTestServer(t *testing.T, server *testutil.TestIMAPServer) *Client {
	t.Helper()

	c, err := Connect(Config{
		Host:     server.Host,
		Port:     server.Port,
		SSL:      false,
		Username: server.Username(),
		Password: server.Password(),
	})
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestConnect(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)

	t.Run("logs in with valid credentials", func(t *testing.T) {
		c := connectTestServer(t, server)
		assert.NotNil(t, c)
	})

	t.Run("wrong password is a connection error", func(t *testing.T) {
		_, err := Connect(Config{
			Host:     server.Host,
			Port:     server.Port,
			Username: server.Username(),
			Password: "wrong",
		})

		var connErr *ConnectionError
		require.True(t, errors.As(err, &connErr), "expected ConnectionError, got %v", err)
		assert.Equal(t, server.Address, connErr.Addr)
	})

	t.Run("unreachable server is a connection error", func(t *testing.T) {
		_, err := Connect(Config{Host: "127.0.0.1", Port: 1, Username: "u", Password: "p"})

		var connErr *ConnectionError
		assert.True(t, errors.As(err, &connErr), "expected ConnectionError, got %v", err)
	})
}

func TestListAndSelectFolders(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	server.CreateFolder(t, "Archive")
	c := connectTestServer(t, server)

	t.Run("lists folders", func(t *testing.T) {
		folders, err := c.ListFolders()
		require.NoError(t, err)
		assert.Contains(t, folders, "INBOX")
		assert.Contains(t, folders, "Archive")
	})

	t.Run("selects existing folder", func(t *testing.T) {
		assert.NoError(t, c.SelectFolder("Archive"))
	})

	t.Run("missing folder is a select error", func(t *testing.T) {
		err := c.SelectFolder("Nope")

		var selectErr *FolderSelectError
		require.True(t, errors.As(err, &selectErr), "expected FolderSelectError, got %v", err)
		assert.Equal(t, "Nope", selectErr.Folder)
	})
}

func TestUIDsAbove(t *testing.T) {
	tests := []struct {
		name    string
		uids    []uint32
		lastUID uint32
		want    []uint32
	}{
		{"filters and keeps order", []uint32{3, 6, 7, 10}, 5, []uint32{6, 7, 10}},
		{"sorts unordered input", []uint32{10, 6, 7}, 0, []uint32{6, 7, 10}},
		{"star match below watermark", []uint32{10}, 10, []uint32{}},
		{"empty", nil, 0, []uint32{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, uidsAbove(tt.uids, tt.lastUID))
		})
	}
}

func TestSearchAndFetch(t *testing.T) {
	server := testutil.NewTestIMAPServer(t)
	server.CreateFolder(t, "Work")

	sentAt := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	raw1 := testutil.SampleMessage("<one@example.com>", "One", "a@example.com", "b@example.com", "first", sentAt)
	raw2 := testutil.SampleMessage("<two@example.com>", "Two", "a@example.com", "b@example.com", "second", sentAt)
	uid1 := server.AddRawMessage(t, "Work", raw1, `\Seen`)
	uid2 := server.AddRawMessage(t, "Work", raw2)

	c := connectTestServer(t, server)
	require.NoError(t, c.SelectFolder("Work"))

	t.Run("finds all UIDs from zero", func(t *testing.T) {
		uids, err := c.SearchUIDsSince(0)
		require.NoError(t, err)
		assert.Equal(t, []uint32{uid1, uid2}, uids)
	})

	t.Run("finds UIDs above watermark", func(t *testing.T) {
		uids, err := c.SearchUIDsSince(uid1)
		require.NoError(t, err)
		assert.Equal(t, []uint32{uid2}, uids)
	})

	t.Run("nothing above highest UID", func(t *testing.T) {
		uids, err := c.SearchUIDsSince(uid2)
		require.NoError(t, err)
		assert.Empty(t, uids)
	})

	t.Run("fetches raw bytes and attributes", func(t *testing.T) {
		fetched, err := c.FetchBatch([]uint32{uid1, uid2})
		require.NoError(t, err)
		require.Len(t, fetched, 2)

		first := fetched[uid1]
		assert.Equal(t, raw1, first.Raw)
		assert.Contains(t, first.Flags, `\Seen`)
		assert.Equal(t, int64(len(raw1)), first.Size)
		assert.False(t, first.InternalDate.IsZero())
	})

	t.Run("missing UID is left out", func(t *testing.T) {
		fetched, err := c.FetchBatch([]uint32{uid2, 999})
		require.NoError(t, err)
		assert.Len(t, fetched, 1)
		assert.Contains(t, fetched, uid2)
	})

	t.Run("empty batch", func(t *testing.T) {
		fetched, err := c.FetchBatch(nil)
		require.NoError(t, err)
		assert.Empty(t, fetched)
	})
}
