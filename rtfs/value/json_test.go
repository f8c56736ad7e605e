package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/rtfs/value"
)

func TestToAnyFromAnyRoundTripsScalars(t *testing.T) {
	cases := []value.Value{
		value.Null(),
		value.Bool(true),
		value.Int(42),
		value.Float(3.5),
		value.String("hi"),
		value.Keyword("kw"),
		value.Symbol("sym"),
	}
	for _, v := range cases {
		a := value.ToAny(v)
		got, err := value.FromAny(a)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestToAnyFromAnyRoundTripsCollections(t *testing.T) {
	m := value.NewMap().Assoc(value.Keyword("a"), value.Int(1))
	cases := []value.Value{
		value.List(value.Int(1), value.String("x")),
		value.Vector(value.Int(1), value.Int(2)),
		value.MapValue(m),
		value.HandleValue(value.Handle{Namespace: "ns", ID: "id-1"}),
	}
	for _, v := range cases {
		a := value.ToAny(v)
		got, err := value.FromAny(a)
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
}

func TestFromAnyPlainJSONMapDecodesToKeywordKeyedMap(t *testing.T) {
	got, err := value.FromAny(map[string]any{"name": "x"})
	require.NoError(t, err)
	require.Equal(t, value.KindMap, got.Kind())
	v, ok := got.Map().Get(value.Keyword("name"))
	require.True(t, ok)
	require.Equal(t, "x", v.Str())
}

func TestFromAnyRejectsUnsupportedType(t *testing.T) {
	_, err := value.FromAny(struct{}{})
	require.Error(t, err)
}

func TestFromAnyIntegralFloatDecodesToInt(t *testing.T) {
	got, err := value.FromAny(float64(7))
	require.NoError(t, err)
	require.Equal(t, value.KindInt, got.Kind())
	require.Equal(t, int64(7), got.Int())
}
