package report

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Pseudonymizer replaces account ids in the detection logs with a salted
// SHA-256 digest, so logs can be shared without exposing account identity
// while staying joinable within a run.
type Pseudonymizer struct {
	salt string
}

// NewPseudonymizer requires a non-empty salt; an unsalted digest would be
// trivially reversible by dictionary.
func NewPseudonymizer(salt string) (*Pseudonymizer, error) {
	if salt == "" {
		return nil, fmt.Errorf("pseudonymization salt is empty")
	}
	return &Pseudonymizer{salt: salt}, nil
}

// Apply returns hex(SHA256(salt ":" accountID)).
func (p *Pseudonymizer) Apply(accountID string) string {
	sum := sha256.Sum256([]byte(p.salt + ":" + accountID))
	return hex.EncodeToString(sum[:])
}
