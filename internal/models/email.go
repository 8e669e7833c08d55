package models

import "time"

// Recipient roles.
const (
	RoleTo  = "to"
	RoleCc  = "cc"
	RoleBcc = "bcc"
)

type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

type Mailbox struct {
	ID           string `json:"id"`
	AccountID    string `json:"account_id"`
	AccountEmail string `json:"account_email"`
	Name         string `json:"name"`
}

// Message is the canonical, content-addressed record of one distinct raw message.
// RawSHA256 is its identity; everything else is descriptive.
type Message struct {
	ID                 string     `json:"id"`
	Seq                int64      `json:"seq"`
	RawSHA256          string     `json:"raw_sha256"`
	MessageIDHeader    string     `json:"message_id_header"`
	ContentFingerprint string     `json:"content_fingerprint"`
	Subject            string     `json:"subject"`
	SubjectNorm        string     `json:"subject_norm"`
	SentAt             *time.Time `json:"sent_at"`
	InternalDate       *time.Time `json:"internal_date"`
	FromName           string     `json:"from_name"`
	FromEmail          string     `json:"from_email"`
	InReplyTo          string     `json:"in_reply_to"`
	References         []string   `json:"references"`
	BodyText           string     `json:"body_text"`
	BodyHTML           string     `json:"body_html"`
	SizeBytes          int64      `json:"size_bytes"`
	ThreadID           string     `json:"thread_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// MailboxMessage records that a canonical message is visible at a UID in a mailbox.
type MailboxMessage struct {
	ID         string    `json:"id"`
	MailboxID  string    `json:"mailbox_id"`
	MessageID  string    `json:"message_id"`
	UID        uint32    `json:"uid"`
	Flags      []string  `json:"flags"`
	ModSeq     *int64    `json:"modseq,omitempty"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

type Person struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

type Recipient struct {
	MessageID string `json:"message_id"`
	PersonID  string `json:"person_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type Attachment struct {
	ID          string `json:"id"`
	MessageID   string `json:"message_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
	PartID      string `json:"part_id"`
	SHA256      string `json:"sha256"`
}

type Thread struct {
	ID          string `json:"id"`
	ThreadKey   string `json:"thread_key"`
	SubjectNorm string `json:"subject_norm"`
}

// ThreadCandidate is the slice of a stored message the thread builder needs.
type ThreadCandidate struct {
	ID          string
	Seq         int64
	SubjectNorm string
	SentAt      *time.Time
	InReplyTo   string
	References  []string
	ThreadID    string
}

type Checkpoint struct {
	AccountEmail string    `json:"account_email"`
	MailboxName  string    `json:"mailbox_name"`
	LastUID      uint32    `json:"last_uid"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Stats is a row count summary of the archive.
type Stats struct {
	Accounts    int `json:"accounts"`
	Mailboxes   int `json:"mailboxes"`
	Messages    int `json:"messages"`
	Placements  int `json:"placements"`
	Persons     int `json:"persons"`
	Threads     int `json:"threads"`
	Attachments int `json:"attachments"`
}
