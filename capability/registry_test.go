package capability_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mandubian/ccos-sub001/capability"
	"github.com/mandubian/ccos-sub001/rtfs/value"
)

type constProvider struct{ v value.Value }

func (p constProvider) Execute(_ []value.Value, _ *value.Map) (value.Value, error) { return p.v, nil }
func (constProvider) Health() error                                               { return nil }

func TestRegisterRequiresIDAndProvider(t *testing.T) {
	r := capability.New()
	require.Error(t, r.Register(capability.Manifest{Provider: constProvider{}}))
	require.Error(t, r.Register(capability.Manifest{ID: "x"}))
}

func TestRegisterLookupDeregister(t *testing.T) {
	r := capability.New()
	require.NoError(t, r.Register(capability.Manifest{ID: "ccos.echo", Provider: constProvider{v: value.Int(1)}}))

	m, ok := r.Lookup("ccos.echo")
	require.True(t, ok)
	require.Equal(t, "ccos.echo", m.ID)

	r.Deregister("ccos.echo")
	_, ok = r.Lookup("ccos.echo")
	require.False(t, ok)
}

func TestManifestExecuteValidatesInputSchema(t *testing.T) {
	schema := capability.NewKindSchema(value.KindInt)
	m := capability.Manifest{
		ID:          "ccos.typed",
		InputSchema: &schema,
		Provider:    constProvider{v: value.Int(1)},
	}
	_, err := m.Execute([]value.Value{value.String("not an int")}, nil)
	require.Error(t, err)

	_, err = m.Execute([]value.Value{value.Int(2)}, nil)
	require.NoError(t, err)
}

func TestManifestExecuteValidatesOutputSchema(t *testing.T) {
	schema := capability.NewKindSchema(value.KindInt)
	m := capability.Manifest{
		ID:           "ccos.bad-output",
		OutputSchema: &schema,
		Provider:     constProvider{v: value.String("wrong kind")},
	}
	_, err := m.Execute(nil, nil)
	require.Error(t, err)
}

func TestJSONSchemaValidatesAgainstDocument(t *testing.T) {
	schema := capability.NewJSONSchema(`{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`)
	m := value.NewMap().Assoc(value.Keyword("name"), value.String("x"))
	require.NoError(t, schema.Validate(value.MapValue(m)))

	missing := value.NewMap()
	require.Error(t, schema.Validate(value.MapValue(missing)))
}

func TestJSONSchemaRejectsWrongType(t *testing.T) {
	schema := capability.NewJSONSchema(`{"type": "integer"}`)
	require.NoError(t, schema.Validate(value.Int(1)))
	require.Error(t, schema.Validate(value.String("not an int")))
}

func TestManifestExecuteValidatesAgainstJSONSchemaDocument(t *testing.T) {
	schema := capability.NewJSONSchema(`{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`)
	m := capability.Manifest{
		ID:          "ccos.typed-doc",
		InputSchema: &schema,
		Provider:    constProvider{v: value.Int(1)},
	}
	_, err := m.Execute([]value.Value{value.MapValue(value.NewMap())}, nil)
	require.Error(t, err)

	valid := value.NewMap().Assoc(value.Keyword("name"), value.String("x"))
	_, err = m.Execute([]value.Value{value.MapValue(valid)}, nil)
	require.NoError(t, err)
}

func TestMapSchemaRequiresKeys(t *testing.T) {
	schema := capability.NewMapSchema("name")
	m := value.NewMap()
	require.Error(t, schema.Validate(value.MapValue(m)))

	m = m.Assoc(value.Keyword("name"), value.String("x"))
	require.NoError(t, schema.Validate(value.MapValue(m)))
}
