package usecase

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"arbiter/internal/domain"
)

const auditChainVersion = "arbiter-audit-v1"

// appendAudit returns a new slice with message chained onto entries.
func appendAudit(entries []domain.AuditEntry, at time.Time, message string) []domain.AuditEntry {
	prevHash := zeroAuditHash()
	if len(entries) > 0 {
		prevHash = entries[len(entries)-1].Hash
	}
	entry := domain.AuditEntry{
		Seq:      len(entries) + 1,
		At:       at.UTC(),
		Message:  message,
		PrevHash: prevHash,
	}
	entry.Hash = computeAuditHash(entry)
	out := make([]domain.AuditEntry, len(entries), len(entries)+1)
	copy(out, entries)
	return append(out, entry)
}

// VerifyAuditChain checks sequence numbers and hash links of a case's audit log.
func VerifyAuditChain(entries []domain.AuditEntry) error {
	expectedSeq := 1
	prevHash := zeroAuditHash()
	for _, entry := range entries {
		if entry.Seq != expectedSeq {
			return fmt.Errorf("audit chain seq mismatch: expected %d got %d", expectedSeq, entry.Seq)
		}
		if entry.PrevHash != prevHash {
			return fmt.Errorf("audit chain prev hash mismatch at seq %d", entry.Seq)
		}
		if entry.At.IsZero() {
			return fmt.Errorf("audit chain missing timestamp at seq %d", entry.Seq)
		}
		if computeAuditHash(entry) != entry.Hash {
			return fmt.Errorf("audit chain hash mismatch at seq %d", entry.Seq)
		}
		prevHash = entry.Hash
		expectedSeq++
	}
	return nil
}

func computeAuditHash(entry domain.AuditEntry) string {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	writeKV(buf, "at", entry.At.UTC().Format(time.RFC3339Nano), false)
	writeKV(buf, "message", entry.Message, false)
	writeKV(buf, "prev_hash", entry.PrevHash, false)
	writeKVNumber(buf, "seq", int64(entry.Seq), false)
	writeKV(buf, "v", auditChainVersion, true)
	buf.WriteByte('}')
	return sha256Hex(buf.Bytes())
}

func sha256Hex(input []byte) string {
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:])
}

func zeroAuditHash() string {
	return "0000000000000000000000000000000000000000000000000000000000000000"
}

func writeKV(buf *bytes.Buffer, key, value string, last bool) {
	writeJSONString(buf, key)
	buf.WriteByte(':')
	writeJSONString(buf, value)
	if !last {
		buf.WriteByte(',')
	}
}

func writeKVNumber(buf *bytes.Buffer, key string, value int64, last bool) {
	writeJSONString(buf, key)
	buf.WriteByte(':')
	buf.WriteString(strconv.FormatInt(value, 10))
	if !last {
		buf.WriteByte(',')
	}
}

func writeJSONString(buf *bytes.Buffer, value string) {
	buf.WriteByte('"')
	for _, r := range value {
		switch r {
		case '"', '\\':
			buf.WriteByte('\\')
			buf.WriteRune(r)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexLower[r>>4])
				buf.WriteByte(hexLower[r&0x0f])
			} else {
				buf.WriteRune(r)
			}
		}
	}
	buf.WriteByte('"')
}

var hexLower = []byte("0123456789abcdef")
