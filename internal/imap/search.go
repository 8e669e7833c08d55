package imap

import (
	"fmt"
	"sort"

	"github.com/emersion/go-imap"
)

// SearchUIDsSince returns the UIDs above lastUID in ascending order.
func (c *Client) SearchUIDsSince(lastUID uint32) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(lastUID+1, 0)

	uids, err := c.c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search UIDs: %w", err)
	}

	return uidsAbove(uids, lastUID), nil
}

// uidsAbove keeps the UIDs strictly greater than lastUID, sorted. A "n:*"
// search always matches the highest UID, even when it is below n.
func uidsAbove(uids []uint32, lastUID uint32) []uint32 {
	result := make([]uint32, 0, len(uids))
	for _, uid := range uids {
		if uid > lastUID {
			result = append(result, uid)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}
