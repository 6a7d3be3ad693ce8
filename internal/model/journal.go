package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainJournal is the domain prefix for journal entry identity.
// The version suffix leaves room for a future hashing change.
const DomainJournal = "refgraph/journal/v1"

// OutcomeOK marks a journal entry whose operation committed.
const OutcomeOK = "ok"

// JournalEntry records one mutating engine operation.
//
// Affected lists the ids of every record the operation touched, prefixed with
// their kind ("post:post-1"). Failed cascade steps are listed with a
// "failed:" prefix so a partially applied cascade can be inspected later.
type JournalEntry struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	RequestID string         `json:"requestId"`
	Operation string         `json:"operation"`
	Args      map[string]any `json:"args"`
	Outcome   string         `json:"outcome"`
	Affected  []string       `json:"affected"`
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// JournalEntryID computes the content-addressed id of a journal entry.
// The id is stable given the same request, operation, args and seq.
func JournalEntryID(requestID, operation string, args map[string]any, seq int64) (string, error) {
	if args == nil {
		args = map[string]any{}
	}
	canonical, err := MarshalCanonical(map[string]any{
		"request_id": requestID,
		"operation":  operation,
		"args":       args,
		"seq":        seq,
	})
	if err != nil {
		return "", fmt.Errorf("JournalEntryID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainJournal, canonical), nil
}

// AffectedRef formats a record reference for JournalEntry.Affected.
func AffectedRef(kind Kind, id string) string {
	return string(kind) + ":" + id
}
