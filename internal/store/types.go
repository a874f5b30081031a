package store

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// SourceWeb tags entries recorded by the browser relay.
const SourceWeb = "web"

// TimestampLayout is ISO-8601 local time with microseconds.
const TimestampLayout = "2006-01-02T15:04:05.000000"

type Entry struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source,omitempty"`
}

func NewEntry(role Role, content string, now time.Time) Entry {
	return Entry{
		Role:      role,
		Content:   content,
		Timestamp: FormatTimestamp(now),
		Source:    SourceWeb,
	}
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// IdentityMeta is bookkeeping derived from the logs; the logs stay authoritative.
type IdentityMeta struct {
	Identity  string    `json:"identity"`
	Entries   int       `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type IdentityIndex struct {
	Identities map[string]IdentityMeta `json:"identities"`
}
