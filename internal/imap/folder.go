package imap

import (
	"fmt"

	"github.com/emersion/go-imap"
)

// ListFolders lists all folders in server order.
func (c *Client) ListFolders() ([]string, error) {
	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- c.c.List("", "*", mailboxes)
	}()

	var folders []string
	for m := range mailboxes {
		folders = append(folders, m.Name)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, nil
}

// SelectFolder opens a folder read-only (EXAMINE), so fetching never changes flags.
func (c *Client) SelectFolder(name string) error {
	if _, err := c.c.Select(name, true); err != nil {
		return &FolderSelectError{Folder: name, Err: err}
	}
	return nil
}
