package threading

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// keyLength is how many hex characters of the digest form a thread key.
const keyLength = 40

func hashKey(material string) string {
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])[:keyLength]
}

// ThreadKey derives the grouping key of a message. The first reference wins,
// then In-Reply-To, then the normalized subject plus the UTC send date.
// The fallback ignores the sender, so unrelated messages with the same
// subject on the same day share a thread.
func ThreadKey(references []string, inReplyTo, subjectNorm string, sentAt *time.Time) string {
	if len(references) > 0 && references[0] != "" {
		return hashKey("ref:" + references[0])
	}
	if inReplyTo != "" {
		return hashKey("irt:" + inReplyTo)
	}

	day := "nodate"
	if sentAt != nil {
		day = sentAt.UTC().Format("2006-01-02")
	}
	return hashKey("fallback:" + subjectNorm + ":" + day)
}
