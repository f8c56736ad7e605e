package causalchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Redact replaces a's Args/Result with a tagged Redacted marker carrying a
// commitment hash of the original payload, preserving the ability to prove
// a later-revealed value matches what was actually recorded (spec.md §4.7,
// "Retention and redaction").
func Redact(a Action) Action {
	if a.Args != nil {
		a.Args = commit(a.Args)
	}
	if a.Result != nil {
		a.Result = commit(a.Result)
	}
	return a
}

func commit(payload any) Redacted {
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte(`"unencodable"`)
	}
	sum := sha256.Sum256(b)
	return Redacted{Commitment: hex.EncodeToString(sum[:])}
}
