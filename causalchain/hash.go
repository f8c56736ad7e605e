package causalchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// canonical produces a deterministic byte encoding of an action for
// hashing. Unlike rtfs/value.Canonical (which encodes RTFS Values for the
// evaluator's own hashing needs), actions are plain Go structs with a fixed
// field order, so encoding/json already yields a stable byte sequence
// without needing a bespoke tag-prefixed format.
func canonical(a Action) []byte {
	b, err := json.Marshal(a.withoutHash())
	if err != nil {
		// Action fields are all JSON-marshalable by construction (strings,
		// numbers, time.Time, and any/map values built from RTFS values);
		// a marshal failure here means a caller stored an unencodable Args
		// or Result, which is a programming error, not a runtime condition.
		panic("causalchain: action not JSON-marshalable: " + err.Error())
	}
	return b
}

// computeHash implements the chain's edge function: H(canonical(fields)
// ∥ parent_hash).
func computeHash(a Action, parentHash string) string {
	h := sha256.New()
	h.Write(canonical(a))
	h.Write([]byte(parentHash))
	return hex.EncodeToString(h.Sum(nil))
}
