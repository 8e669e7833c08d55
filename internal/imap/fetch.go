package imap

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-imap"
)

// FetchedMessage is one message as returned by the server.
type FetchedMessage struct {
	UID          uint32
	Raw          []byte
	Flags        []string
	InternalDate time.Time
	Size         int64
}

// FetchBatch fetches the full raw message plus flags, internal date and size
// for each UID without setting \Seen. UIDs the server returns no body for are
// left out of the result.
func (c *Client) FetchBatch(uids []uint32) (map[uint32]*FetchedMessage, error) {
	result := make(map[uint32]*FetchedMessage, len(uids))
	if len(uids) == 0 {
		return result, nil
	}

	seqSet := new(imap.SeqSet)
	for _, uid := range uids {
		seqSet.AddNum(uid)
	}

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{
		section.FetchItem(),
		imap.FetchFlags,
		imap.FetchInternalDate,
		imap.FetchRFC822Size,
		imap.FetchUid,
	}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- c.c.UidFetch(seqSet, items, messages)
	}()

	var readErr error
	for msg := range messages {
		if msg == nil || msg.Uid == 0 {
			continue
		}

		body := msg.GetBody(section)
		if body == nil {
			continue
		}

		raw, err := io.ReadAll(body)
		if err != nil {
			if readErr == nil {
				readErr = fmt.Errorf("failed to read body of UID %d: %w", msg.Uid, err)
			}
			continue
		}

		size := int64(msg.Size)
		if size == 0 {
			size = int64(len(raw))
		}

		result[msg.Uid] = &FetchedMessage{
			UID:          msg.Uid,
			Raw:          raw,
			Flags:        msg.Flags,
			InternalDate: msg.InternalDate,
			Size:         size,
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	if readErr != nil {
		return nil, readErr
	}

	return result, nil
}
