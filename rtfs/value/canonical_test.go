package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/rtfs/value"
)

func TestCanonicalIsDeterministicAcrossMapInsertionOrder(t *testing.T) {
	m1 := value.NewMap().Assoc(value.Keyword("a"), value.Int(1)).Assoc(value.Keyword("b"), value.Int(2))
	m2 := value.NewMap().Assoc(value.Keyword("b"), value.Int(2)).Assoc(value.Keyword("a"), value.Int(1))
	require.Equal(t, value.Canonical(value.MapValue(m1)), value.Canonical(value.MapValue(m2)))
}

func TestCanonicalDistinguishesStringAndKeyword(t *testing.T) {
	require.NotEqual(t, value.Canonical(value.String("x")), value.Canonical(value.Keyword("x")))
}

func TestCanonicalDistinguishesListAndVector(t *testing.T) {
	require.NotEqual(t, value.Canonical(value.List(value.Int(1))), value.Canonical(value.Vector(value.Int(1))))
}

func TestHashIsStableForEqualValues(t *testing.T) {
	a := value.Vector(value.Int(1), value.String("x"))
	b := value.Vector(value.Int(1), value.String("x"))
	require.Equal(t, value.Hash(a), value.Hash(b))
}

func TestHashDiffersForDifferentValues(t *testing.T) {
	require.NotEqual(t, value.Hash(value.Int(1)), value.Hash(value.Int(2)))
}
