package domain

import "time"

// AuditEntry is one line of a case's hash-chained audit log. Seq starts at 1.
type AuditEntry struct {
	Seq      int       `json:"seq"`
	At       time.Time `json:"at"`
	Message  string    `json:"message"`
	PrevHash string    `json:"prev_hash"`
	Hash     string    `json:"hash"`
}

// Line renders the entry the way the operator log shows it: "[HH:MM:SS] message".
func (e AuditEntry) Line() string {
	return "[" + e.At.Format("15:04:05") + "] " + e.Message
}
