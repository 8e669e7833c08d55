package parser

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/jhillyerd/enmime"
	"github.com/k3a/html2text"
)

// Address is a display name and mailbox address pair as found in a header.
type Address struct {
	Name    string
	Address string
}

// Attachment is the metadata of one attachment part. Content is not kept.
type Attachment struct {
	Filename    string
	ContentType string
	Size        int64
	PartID      string
	SHA256      string
}

// ParsedEmail holds the header, body and attachment fields extracted from a raw message.
type ParsedEmail struct {
	MessageID   string
	Subject     string
	Date        string
	FromName    string
	FromEmail   string
	To          []Address
	Cc          []Address
	Bcc         []Address
	InReplyTo   string
	References  []string
	BodyText    string
	BodyHTML    string
	Attachments []Attachment

	// Warnings lists the fields that degraded to empty values while parsing.
	Warnings []string
}

// Parse parses a raw RFC822 message. It never fails: anything that cannot be
// decoded degrades to an empty value and a warning.
func Parse(raw []byte) *ParsedEmail {
	parsed := &ParsedEmail{}

	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		parsed.warn("failed to read MIME structure: %v", err)
		parsed.BodyText = clean(string(raw))
		return parsed
	}

	parsed.MessageID = header(env, "Message-ID")
	parsed.Subject = header(env, "Subject")
	parsed.Date = header(env, "Date")
	parsed.InReplyTo = header(env, "In-Reply-To")
	parsed.References = strings.Fields(header(env, "References"))

	from := parsed.addressList(env, "From")
	if len(from) > 0 {
		parsed.FromName = from[0].Name
		parsed.FromEmail = from[0].Address
	}
	parsed.To = parsed.addressList(env, "To")
	parsed.Cc = parsed.addressList(env, "Cc")
	parsed.Bcc = parsed.addressList(env, "Bcc")

	parsed.extractBodies(env.Root)

	return parsed
}

func (p *ParsedEmail) warn(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

// clean returns s as valid UTF-8 without NUL bytes, which text columns reject.
func clean(s string) string {
	return strings.ReplaceAll(strings.ToValidUTF8(s, "\uFFFD"), "\x00", "")
}

func header(env *enmime.Envelope, name string) string {
	return strings.TrimSpace(clean(env.GetHeader(name)))
}

// addressList returns the addresses of a header, dropping entries without an address.
// When the header does not parse as a whole, each comma separated entry is
// parsed on its own and only the malformed entries are dropped.
func (p *ParsedEmail) addressList(env *enmime.Envelope, name string) []Address {
	if env.GetHeader(name) == "" {
		return nil
	}

	list, err := env.AddressList(name)
	if err != nil {
		p.warn("malformed %s header: %v", name, err)
		list = nil
		for _, entry := range splitAddressList(rawHeader(env, name)) {
			if strings.TrimSpace(entry) == "" {
				continue
			}
			addrs, err := enmime.ParseAddressList(entry)
			if err != nil {
				p.warn("dropped %s entry %q: %v", name, strings.TrimSpace(entry), err)
				continue
			}
			list = append(list, addrs...)
		}
	}

	result := make([]Address, 0, len(list))
	for _, addr := range list {
		if addr == nil {
			continue
		}
		address := strings.TrimSpace(clean(addr.Address))
		if address == "" {
			continue
		}
		result = append(result, Address{Name: strings.TrimSpace(clean(addr.Name)), Address: address})
	}
	return result
}

// rawHeader returns a header before encoded words are decoded, so quoting
// inside them cannot change where entries split.
func rawHeader(env *enmime.Envelope, name string) string {
	if env.Root != nil && env.Root.Header != nil {
		return env.Root.Header.Get(name)
	}
	return env.GetHeader(name)
}

// splitAddressList splits a header value on commas outside quoted strings
// and comments. Angle brackets are not tracked so an unclosed one cannot
// swallow the entries after it.
func splitAddressList(value string) []string {
	var entries []string
	var quoted, escaped bool
	depth, start := 0, 0
	for i := 0; i < len(value); i++ {
		c := value[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = quoted || depth > 0
		case c == '"' && depth == 0:
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case c == ',' && depth == 0:
			entries = append(entries, value[start:i])
			start = i + 1
		}
	}
	return append(entries, value[start:])
}

// extractBodies walks the part tree depth-first. The walk index, containers
// included, is used as the attachment part id.
func (p *ParsedEmail) extractBodies(root *enmime.Part) {
	if root == nil {
		return
	}

	if root.FirstChild == nil && !isMultipart(root) {
		text := p.decodedText(root)
		if contentType(root) == "text/html" {
			p.BodyHTML = text
		} else {
			p.BodyText = text
		}
	} else {
		index := 0
		var walk func(part *enmime.Part)
		walk = func(part *enmime.Part) {
			for ; part != nil; part = part.NextSibling {
				p.visitPart(part, index)
				index++
				walk(part.FirstChild)
			}
		}
		walk(root)
	}

	if p.BodyText == "" && p.BodyHTML != "" {
		p.BodyText = strings.TrimSpace(html2text.HTML2Text(p.BodyHTML))
	}
}

func (p *ParsedEmail) visitPart(part *enmime.Part, index int) {
	if isMultipart(part) {
		return
	}

	if isAttachment(part) {
		sum := sha256.Sum256(part.Content)
		p.Attachments = append(p.Attachments, Attachment{
			Filename:    clean(part.FileName),
			ContentType: contentType(part),
			Size:        int64(len(part.Content)),
			PartID:      strconv.Itoa(index),
			SHA256:      hex.EncodeToString(sum[:]),
		})
		return
	}

	switch contentType(part) {
	case "text/plain":
		if p.BodyText == "" {
			p.BodyText = p.decodedText(part)
		}
	case "text/html":
		if p.BodyHTML == "" {
			p.BodyHTML = p.decodedText(part)
		}
	}
}

// decodedText returns the part content as UTF-8. enmime already converts
// declared charsets; bytes it could not convert are replaced.
func (p *ParsedEmail) decodedText(part *enmime.Part) string {
	for _, perr := range part.Errors {
		if perr != nil {
			p.warn("part %s: %s", part.PartID, perr.Error())
		}
	}
	return clean(string(part.Content))
}

func contentType(part *enmime.Part) string {
	ct := strings.ToLower(strings.TrimSpace(part.ContentType))
	if ct == "" {
		return "text/plain"
	}
	return ct
}

func isMultipart(part *enmime.Part) bool {
	return strings.HasPrefix(strings.ToLower(part.ContentType), "multipart/")
}

func isAttachment(part *enmime.Part) bool {
	return strings.Contains(strings.ToLower(part.Disposition), "attachment") || part.FileName != ""
}
