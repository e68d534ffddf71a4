package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainFilter = "feedsync/filter/v1"
	DomainView   = "feedsync/view/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of the filter's canonical key.
// Used to correlate journal rows with the filter that produced them.
func (f Filter) Hash() string {
	return hashWithDomain(DomainFilter, []byte(f.Key()))
}

// ViewHash hashes a canonical display snapshot. Equal hashes mean the
// renderer can skip the diff entirely.
func ViewHash(canonical []byte) string {
	return hashWithDomain(DomainView, canonical)
}
