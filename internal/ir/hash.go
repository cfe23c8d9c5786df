package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity. The version suffix leaves
// room for algorithm changes.
const (
	DomainProperty = "paramtrace/property/v1"
	DomainMatch    = "paramtrace/match/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The separator keeps
// the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PropertyHash identifies a property definition by content. Two files that
// declare the same alphabet and automaton in the same order hash equal.
func PropertyHash(p *PropertySpec) (string, error) {
	canonical, err := MarshalCanonical(p.Value())
	if err != nil {
		return "", fmt.Errorf("PropertyHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProperty, canonical), nil
}

// MatchID identifies the seq-th match of a run. It is stable across
// re-runs of the same trace under the same run ID.
func MatchID(runID, property string, seq int64, bindings Object) (string, error) {
	obj := Object{
		"run_id":   String(runID),
		"property": String(property),
		"seq":      Int(seq),
		"bindings": bindings,
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("MatchID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainMatch, canonical), nil
}

// MustMatchID is like MatchID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustMatchID(runID, property string, seq int64, bindings Object) string {
	id, err := MatchID(runID, property, seq, bindings)
	if err != nil {
		panic(err)
	}
	return id
}
