package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMessage(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func TestParseHeaders(t *testing.T) {
	raw := rawMessage(
		"Message-ID:  <abc@example.com> ",
		"Date: Tue, 5 Mar 2024 10:15:00 +0100",
		`From: "Jane Doe" <Jane.Doe@Example.com>`,
		`To: Bob <bob@example.com>, carol@example.com`,
		"Cc: Dave <dave@example.com>",
		"Bcc: eve@example.com",
		"Subject: Re: Quarterly report",
		"In-Reply-To: <root@example.com>",
		"References: <root@example.com>\r\n <mid@example.com>",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Hello there.",
	)

	parsed := Parse(raw)

	assert.Equal(t, "<abc@example.com>", parsed.MessageID)
	assert.Equal(t, "Re: Quarterly report", parsed.Subject)
	assert.Equal(t, "Tue, 5 Mar 2024 10:15:00 +0100", parsed.Date)
	assert.Equal(t, "Jane Doe", parsed.FromName)
	assert.Equal(t, "Jane.Doe@Example.com", parsed.FromEmail)
	assert.Equal(t, []Address{{Name: "Bob", Address: "bob@example.com"}, {Name: "", Address: "carol@example.com"}}, parsed.To)
	assert.Equal(t, []Address{{Name: "Dave", Address: "dave@example.com"}}, parsed.Cc)
	assert.Equal(t, []Address{{Name: "", Address: "eve@example.com"}}, parsed.Bcc)
	assert.Equal(t, "<root@example.com>", parsed.InReplyTo)
	assert.Equal(t, []string{"<root@example.com>", "<mid@example.com>"}, parsed.References)
	assert.Equal(t, "Hello there.", strings.TrimSpace(parsed.BodyText))
	assert.Empty(t, parsed.BodyHTML)
	assert.Empty(t, parsed.Attachments)
}

func TestParseMultipart(t *testing.T) {
	raw := rawMessage(
		"Message-ID: <multi@example.com>",
		"From: sender@example.com",
		"To: rcpt@example.com",
		"Subject: Multipart",
		"MIME-Version: 1.0",
		`Content-Type: multipart/mixed; boundary="outer"`,
		"",
		"--outer",
		`Content-Type: multipart/alternative; boundary="inner"`,
		"",
		"--inner",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"First plain body",
		"--inner",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>First <b>html</b> body</p>",
		"--inner--",
		"",
		"--outer",
		"Content-Type: application/octet-stream",
		`Content-Disposition: attachment; filename="hello.bin"`,
		"Content-Transfer-Encoding: base64",
		"",
		"aGVsbG8=",
		"--outer",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Second plain body",
		"--outer--",
		"",
	)

	parsed := Parse(raw)

	t.Run("first text/plain part wins", func(t *testing.T) {
		assert.Equal(t, "First plain body", strings.TrimSpace(parsed.BodyText))
	})

	t.Run("first text/html part wins", func(t *testing.T) {
		assert.Contains(t, parsed.BodyHTML, "<b>html</b>")
	})

	t.Run("records attachment metadata", func(t *testing.T) {
		require.Len(t, parsed.Attachments, 1)
		att := parsed.Attachments[0]
		assert.Equal(t, "hello.bin", att.Filename)
		assert.Equal(t, "application/octet-stream", att.ContentType)
		assert.Equal(t, int64(5), att.Size)
		assert.Equal(t, "4", att.PartID)
		assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", att.SHA256)
	})
}

func TestParseFilenameWithoutDispositionIsAttachment(t *testing.T) {
	raw := rawMessage(
		"From: sender@example.com",
		"Subject: Inline file",
		`Content-Type: multipart/mixed; boundary="b"`,
		"",
		"--b",
		"Content-Type: text/plain",
		"",
		"body",
		"--b",
		`Content-Type: text/plain; name="notes.txt"`,
		"",
		"not the body",
		"--b--",
		"",
	)

	parsed := Parse(raw)

	assert.Equal(t, "body", strings.TrimSpace(parsed.BodyText))
	require.Len(t, parsed.Attachments, 1)
	assert.Equal(t, "notes.txt", parsed.Attachments[0].Filename)
}

func TestParseHTMLOnly(t *testing.T) {
	raw := rawMessage(
		"From: sender@example.com",
		"Subject: HTML only",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><h1>Hello</h1><p>World</p></body></html>",
	)

	parsed := Parse(raw)

	assert.Contains(t, parsed.BodyHTML, "<h1>Hello</h1>")
	assert.Contains(t, parsed.BodyText, "Hello")
	assert.Contains(t, parsed.BodyText, "World")
	assert.NotContains(t, parsed.BodyText, "<")
}

func TestParseCharsets(t *testing.T) {
	t.Run("decodes declared charset", func(t *testing.T) {
		raw := []byte("From: a@example.com\r\nSubject: Latin\r\nContent-Type: text/plain; charset=iso-8859-1\r\n\r\ncaf\xe9")

		parsed := Parse(raw)

		assert.Equal(t, "café", strings.TrimSpace(parsed.BodyText))
	})

	t.Run("replaces undecodable bytes", func(t *testing.T) {
		raw := []byte("From: a@example.com\r\nSubject: Bad\r\nContent-Type: text/plain; charset=x-no-such-charset\r\n\r\nab\xff\xfecd")

		parsed := Parse(raw)

		assert.True(t, strings.HasPrefix(parsed.BodyText, "ab"))
		assert.Contains(t, parsed.BodyText, "cd")
		assert.NotContains(t, parsed.BodyText, "\xff")
	})
}

func TestParseDegradesMalformedAddresses(t *testing.T) {
	raw := rawMessage(
		"From: sender@example.com",
		"To: <<<not an address",
		"Subject: Still parsed",
		"",
		"body",
	)

	parsed := Parse(raw)

	assert.Empty(t, parsed.To)
	assert.Equal(t, "Still parsed", parsed.Subject)
	assert.NotEmpty(t, parsed.Warnings)
}

func TestParseKeepsValidEntriesOfMalformedAddressList(t *testing.T) {
	raw := rawMessage(
		"From: sender@example.com",
		`To: Bob <bob@example.com>, "Broken" <not an address, Carol <carol@example.com>`,
		`Cc: "Doe, Jane" <jane@example.com>, <<<bad`,
		"Subject: Partly broken",
		"",
		"body",
	)

	parsed := Parse(raw)

	assert.Equal(t, []Address{
		{Name: "Bob", Address: "bob@example.com"},
		{Name: "Carol", Address: "carol@example.com"},
	}, parsed.To)
	assert.Equal(t, []Address{{Name: "Doe, Jane", Address: "jane@example.com"}}, parsed.Cc)
	assert.NotEmpty(t, parsed.Warnings)
}

func TestSplitAddressList(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  []string
	}{
		{"plain", "a@x, b@x", []string{"a@x", " b@x"}},
		{"comma in quotes", `"Doe, J" <j@x>, k@x`, []string{`"Doe, J" <j@x>`, " k@x"}},
		{"comma in comment", "j@x (Doe, J), k@x", []string{"j@x (Doe, J)", " k@x"}},
		{"escaped quote", `"a\", b" <a@x>, c@x`, []string{`"a\", b" <a@x>`, " c@x"}},
		{"unclosed angle", "<a@x, b@x", []string{"<a@x", " b@x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitAddressList(tt.value))
		})
	}
}

func TestParseStripsNulBytes(t *testing.T) {
	t.Run("body and headers", func(t *testing.T) {
		raw := rawMessage(
			"From: sender@example.com",
			"Subject: nul\x00subject",
			"Message-ID: <a\x00b@example.com>",
			"",
			"body\x00with nul",
		)

		parsed := Parse(raw)

		assert.NotContains(t, parsed.BodyText, "\x00")
		assert.Contains(t, parsed.BodyText, "bodywith nul")
		assert.NotContains(t, parsed.Subject, "\x00")
		assert.NotContains(t, parsed.MessageID, "\x00")
	})

	t.Run("html fallback", func(t *testing.T) {
		raw := rawMessage(
			"Content-Type: text/html; charset=utf-8",
			"",
			"<p>hi\x00there</p>",
		)

		parsed := Parse(raw)

		assert.NotContains(t, parsed.BodyHTML, "\x00")
		assert.NotContains(t, parsed.BodyText, "\x00")
	})
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{"empty", "", nil},
		{"garbage", "not a date", nil},
		{"rfc5322", "Tue, 5 Mar 2024 10:15:00 +0100", ptr(time.Date(2024, 3, 5, 9, 15, 0, 0, time.UTC))},
		{"trailing zone comment", "Tue, 5 Mar 2024 10:15:00 +0000 (UTC)", ptr(time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC))},
		{"rfc3339", "2024-03-05T10:15:00Z", ptr(time.Date(2024, 3, 5, 10, 15, 0, 0, time.UTC))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "expected %v, got %v", tt.want, got)
		})
	}
}

func ptr(t time.Time) *time.Time {
	return &t
}
