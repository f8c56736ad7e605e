package governance_test

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mandubian/ccos-sub001/governance"
)

func writeSignedConstitution(t *testing.T, priv ed25519.PrivateKey, body string) string {
	t.Helper()
	var node yaml.Node
	require.NoError(t, yaml.Unmarshal([]byte(body), &node))
	bodyBytes, err := yaml.Marshal(&node)
	require.NoError(t, err)
	sig := ed25519.Sign(priv, bodyBytes)

	doc := struct {
		Body      yaml.Node `yaml:"body"`
		Signature string    `yaml:"signature"`
	}{Body: node, Signature: hexEncode(sig)}
	out, err := yaml.Marshal(&doc)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "constitution.yaml")
	require.NoError(t, os.WriteFile(path, out, 0o600))
	return path
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0x0f]
	}
	return string(out)
}

func TestLoadConstitutionVerifiesSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	path := writeSignedConstitution(t, priv, "version: v1\nrules: []\n")

	c, err := governance.LoadConstitution(path, pub)
	require.NoError(t, err)
	require.Equal(t, "v1", c.Version)
	require.NotEmpty(t, c.Hash)
}

func TestLoadConstitutionRejectsBadSignature(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	path := writeSignedConstitution(t, priv, "version: v1\nrules: []\n")

	_, err = governance.LoadConstitution(path, otherPub)
	require.Error(t, err)
}
