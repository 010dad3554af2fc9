package model

import "time"

// MessageSummary is one parsed mail message, ready for classification.
// UIDs are assigned by the mail store and are only meaningful relative to
// the mailbox they were fetched from.
type MessageSummary struct {
	UID            uint32    `json:"uid"`
	MessageID      string    `json:"-"`
	Subject        string    `json:"subject"`
	Sender         string    `json:"sender"`
	Date           time.Time `json:"date,omitzero"`
	Snippet        string    `json:"snippet"`
	HasAttachments bool      `json:"has_attachments"`
	Flags          []string  `json:"-"`
}

// HasFlag reports whether the message carries the given normalized flag
// token (e.g. "seen", "flagged").
func (m MessageSummary) HasFlag(flag string) bool {
	for _, f := range m.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// MessagesByUID indexes a batch of summaries by UID.
func MessagesByUID(msgs []MessageSummary) map[uint32]MessageSummary {
	byUID := make(map[uint32]MessageSummary, len(msgs))
	for _, m := range msgs {
		byUID[m.UID] = m
	}
	return byUID
}
