package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"

	"github.com/vdavid/mailvault/internal/parser"
)

// snippetRunes is how much of the body text goes into the content fingerprint.
const snippetRunes = 2000

var replyPrefixRe = regexp.MustCompile(`(?i)^(\s*(re|fwd|fw)\s*:\s*)+`)

// NormalizedEmail is a parsed message plus the keys used for identity and comparison.
type NormalizedEmail struct {
	RawSHA256          string
	MessageID          string
	ContentFingerprint string
	Subject            string
	SubjectNorm        string
	SentAt             *time.Time
	FromName           string
	FromEmail          string
	To                 []parser.Address
	Cc                 []parser.Address
	Bcc                []parser.Address
	InReplyTo          string
	References         []string
	BodyText           string
	BodyHTML           string
	Attachments        []parser.Attachment
	Size               int64
}

// SHA256Hex returns the lowercase hex SHA-256 of data.
func SHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// NormalizeSubject strips leading reply/forward prefixes, collapses whitespace
// and lower-cases. "Re: Re: Hello" becomes "hello".
func NormalizeSubject(subject string) string {
	s := replyPrefixRe.ReplaceAllString(subject, "")
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// ContentFingerprint hashes the normalized subject, the normalized sender and
// the start of the body. Different messages may share a fingerprint.
func ContentFingerprint(subjectNorm, fromEmailNorm, bodyText string) string {
	return SHA256Hex([]byte(subjectNorm + "|" + fromEmailNorm + "|" + snippet(bodyText)))
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) > snippetRunes {
		body = string(runes[:snippetRunes])
	}
	return strings.TrimRight(body, " \t\r\n\v\f")
}

// Normalize derives the identity and comparison keys for a parsed message.
// raw must be the exact bytes the server returned.
func Normalize(parsed *parser.ParsedEmail, raw []byte, size int64) *NormalizedEmail {
	subjectNorm := NormalizeSubject(parsed.Subject)
	fromEmail := NormalizeEmail(parsed.FromEmail)

	if size <= 0 {
		size = int64(len(raw))
	}

	return &NormalizedEmail{
		RawSHA256:          SHA256Hex(raw),
		MessageID:          strings.TrimSpace(parsed.MessageID),
		ContentFingerprint: ContentFingerprint(subjectNorm, fromEmail, parsed.BodyText),
		Subject:            parsed.Subject,
		SubjectNorm:        subjectNorm,
		SentAt:             parser.ParseDate(parsed.Date),
		FromName:           strings.TrimSpace(parsed.FromName),
		FromEmail:          fromEmail,
		To:                 normalizeAddresses(parsed.To),
		Cc:                 normalizeAddresses(parsed.Cc),
		Bcc:                normalizeAddresses(parsed.Bcc),
		InReplyTo:          strings.TrimSpace(parsed.InReplyTo),
		References:         parsed.References,
		BodyText:           parsed.BodyText,
		BodyHTML:           parsed.BodyHTML,
		Attachments:        parsed.Attachments,
		Size:               size,
	}
}

func normalizeAddresses(list []parser.Address) []parser.Address {
	if len(list) == 0 {
		return nil
	}
	out := make([]parser.Address, 0, len(list))
	for _, a := range list {
		email := NormalizeEmail(a.Address)
		if email == "" {
			continue
		}
		out = append(out, parser.Address{Name: strings.TrimSpace(a.Name), Address: email})
	}
	return out
}
