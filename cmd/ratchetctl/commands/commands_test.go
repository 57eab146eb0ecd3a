package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"quantum-ratchet/crypto/kem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

// field returns the value printed after "name: ".
func field(t *testing.T, out, name string) string {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		if v, ok := strings.CutPrefix(line, name+": "); ok {
			return v
		}
	}
	t.Fatalf("no %q in output %q", name, out)
	return ""
}

func TestKeyExchangeAndMessages(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "--dir", dir, "keygen", "--user", "Bob")
	require.NoError(t, err)
	assert.Len(t, field(t, out, "Fingerprint"), 35)
	_, err = run(t, "--dir", dir, "keygen", "--user", "alice")
	require.NoError(t, err)

	out, err = run(t, "--dir", dir, "encapsulate", "--peer", "bob")
	require.NoError(t, err)
	ct, aliceSecret := field(t, out, "Ciphertext"), field(t, out, "Secret")

	out, err = run(t, "--dir", dir, "decapsulate", "--user", "bob", ct)
	require.NoError(t, err)
	assert.Equal(t, aliceSecret, field(t, out, "Secret"))

	out, err = run(t, "seal", "--secret", aliceSecret, "--self", "alice", "--peer", "bob", "one", "two")
	require.NoError(t, err)
	envelopes := strings.Fields(out)
	require.Len(t, envelopes, 2)

	out, err = run(t, append([]string{"open", "--secret", aliceSecret, "--self", "bob", "--peer", "alice"}, envelopes...)...)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", out)

	// Out of order, the second envelope no longer matches its key.
	out, err = run(t, "open", "--secret", aliceSecret, "--self", "bob", "--peer", "alice", envelopes[1])
	assert.Error(t, err)
	assert.Equal(t, cfg.FailurePlaceholder+"\n", out)

	out, err = run(t, "--dir", dir, "fingerprint", "--user", "alice", "--peer", "bob")
	require.NoError(t, err)
	assert.Len(t, field(t, out, "Safety number"), 71)
}

func TestTamperedPublicKeyRejected(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "--dir", dir, "keygen", "--user", "bob")
	require.NoError(t, err)

	keyDir = dir
	var spk kem.SignedPublicKey
	require.NoError(t, readJSON(publicKeyPath("bob"), &spk))
	spk.Username = "mallory"
	data, err := json.Marshal(spk)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(publicKeyPath("bob"), data, 0o644))

	_, err = run(t, "--dir", dir, "encapsulate", "--peer", "bob")
	assert.Error(t, err)
}

func TestKeygenRequiresUser(t *testing.T) {
	_, err := run(t, "--dir", t.TempDir(), "keygen")
	assert.Error(t, err)
}
