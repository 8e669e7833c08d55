package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vdavid/mailvault/internal/config"
	"github.com/vdavid/mailvault/internal/imap"
	"github.com/vdavid/mailvault/internal/parser"
	"github.com/vdavid/mailvault/internal/testutil"
)

func TestSampleMessagesParse(t *testing.T) {
	messages := sampleMessages(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC))
	require.Len(t, messages, 4)

	report := parser.Parse([]byte(messages[2].raw))
	require.Len(t, report.Attachments, 1)
	assert.Equal(t, "q3.csv", report.Attachments[0].Filename)
	assert.Contains(t, report.BodyText, "Report")

	reply := parser.Parse([]byte(messages[1].raw))
	assert.Equal(t, []string{"<kickoff@sandbox>"}, reply.References)
}

func TestSeedMailbox(t *testing.T) {
	s, addr, err := startIMAPServer()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, seedMailbox(addr))

	key := testutil.TestEncryptionKey()
	accountPath, err := writeAccountFile(t.TempDir(), addr, key)
	require.NoError(t, err)

	account, err := config.LoadAccount(accountPath)
	require.NoError(t, err)
	password, err := account.ResolvePassword(&config.Config{EncryptionKeyBase64: key}, nil)
	require.NoError(t, err)
	assert.Equal(t, imapPassword, password)

	c, err := imap.Connect(imap.Config{
		Host:     account.IMAP.Host,
		Port:     account.IMAP.Port,
		SSL:      account.IMAP.SSL,
		Username: account.IMAP.Username,
		Password: password,
	})
	require.NoError(t, err)
	defer c.Close()

	folders, err := c.ListFolders()
	require.NoError(t, err)
	assert.Contains(t, folders, "Archive")
	assert.Contains(t, folders, "Sent")

	require.NoError(t, c.SelectFolder("Archive"))
	uids, err := c.SearchUIDsSince(0)
	require.NoError(t, err)
	assert.Len(t, uids, 1)
}
