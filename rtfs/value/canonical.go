package value

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

// Canonical returns the deterministic byte-for-byte serialization of v used
// for content-hashing (spec.md §4.1). The form is platform-independent:
// fixed-width binary for integers, shortest round-trip decimal text for
// floats, UTF-8 for strings, an in-band tag byte
// distinguishing every Kind, and lexicographically key-sorted maps. This
// mirrors the teacher's Ledger ("JSON-friendly... safe to store in workflow
// state"), traded for a binary encoding because canonical(v) must also
// double as the hash-chain preimage (spec.md §4.7), not just a storage
// format.
func Canonical(v Value) []byte {
	buf := make([]byte, 0, 64)
	return appendCanonical(buf, v)
}

// tags identify each Kind in-band so that e.g. String("x") and Keyword("x")
// never collide in canonical form.
const (
	tagNull byte = iota
	tagBoolFalse
	tagBoolTrue
	tagInt
	tagFloat
	tagString
	tagKeyword
	tagSymbol
	tagList
	tagVector
	tagMap
	tagHandle
)

func appendCanonical(buf []byte, v Value) []byte {
	switch v.kind {
	case KindNull:
		return append(buf, tagNull)
	case KindBool:
		if v.b {
			return append(buf, tagBoolTrue)
		}
		return append(buf, tagBoolFalse)
	case KindInt:
		buf = append(buf, tagInt)
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], uint64(v.i))
		return append(buf, tmp[:]...)
	case KindFloat:
		buf = append(buf, tagFloat)
		// Fixed decimal representation per spec.md §4.1; strconv with 'g' and
		// the shortest round-trippable precision keeps it platform-stable.
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if math.IsNaN(v.f) {
			s = "NaN"
		}
		return appendLenPrefixed(buf, []byte(s))
	case KindString:
		buf = append(buf, tagString)
		return appendLenPrefixed(buf, []byte(v.s))
	case KindKeyword:
		buf = append(buf, tagKeyword)
		return appendLenPrefixed(buf, []byte(v.s))
	case KindSymbol:
		buf = append(buf, tagSymbol)
		return appendLenPrefixed(buf, []byte(v.s))
	case KindList:
		buf = append(buf, tagList)
		buf = appendUvarint(buf, uint64(len(v.list)))
		for _, it := range v.list {
			buf = appendCanonical(buf, it)
		}
		return buf
	case KindVector:
		buf = append(buf, tagVector)
		buf = appendUvarint(buf, uint64(len(v.list)))
		for _, it := range v.list {
			buf = appendCanonical(buf, it)
		}
		return buf
	case KindMap:
		buf = append(buf, tagMap)
		n := v.m.Len()
		buf = appendUvarint(buf, uint64(n))
		for _, i := range v.m.sortedEntries() {
			buf = appendCanonical(buf, v.m.keys[i])
			buf = appendCanonical(buf, v.m.vals[i])
		}
		return buf
	case KindHandle:
		buf = append(buf, tagHandle)
		buf = appendLenPrefixed(buf, []byte(v.h.Namespace))
		buf = appendLenPrefixed(buf, []byte(v.h.ID))
		return buf
	default:
		panic(fmt.Sprintf("value: unknown kind %d in Canonical", v.kind))
	}
}

func appendLenPrefixed(buf, data []byte) []byte {
	buf = appendUvarint(buf, uint64(len(data)))
	return append(buf, data...)
}

func appendUvarint(buf []byte, n uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	w := binary.PutUvarint(tmp[:], n)
	return append(buf, tmp[:w]...)
}

// Hash returns the content hash of v: SHA-256 over Canonical(v), hex
// encoded. Used for plan identity (spec.md §3, "Plan... identity is the
// content hash of the serialized plan") and available generally for any
// value needing a stable digest.
func Hash(v Value) string {
	sum := sha256.Sum256(Canonical(v))
	return hex.EncodeToString(sum[:])
}
