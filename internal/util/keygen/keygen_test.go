package keygen

import (
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func TestGenerateED25519(t *testing.T) {
	t.Parallel()

	pair, err := GenerateED25519()
	require.NoError(t, err)

	block, _ := pem.Decode(pair.PrivateKey)
	require.NotNil(t, block)
	assert.Equal(t, "PRIVATE KEY", block.Type)

	pub, _, _, _, err := ssh.ParseAuthorizedKey(pair.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "ssh-ed25519", pub.Type())
	assert.False(t, strings.ContainsRune(pair.PublicKeyString(), '\n'))
}

func TestGenerateRSA(t *testing.T) {
	t.Parallel()

	pair, err := GenerateRSA(2048)
	require.NoError(t, err)

	block, _ := pem.Decode(pair.PrivateKey)
	require.NotNil(t, block)
	assert.Equal(t, "RSA PRIVATE KEY", block.Type)

	pub, _, _, _, err := ssh.ParseAuthorizedKey(pair.PublicKey)
	require.NoError(t, err)
	assert.Equal(t, "ssh-rsa", pub.Type())
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	pair, err := GenerateED25519()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "keys", "id_ed25519")
	require.NoError(t, pair.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	pub, err := LoadPublicKey(path + ".pub")
	require.NoError(t, err)
	assert.Equal(t, pair.PublicKeyString(), pub)
}

func TestLoadPublicKey_Invalid(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.pub")
	require.NoError(t, os.WriteFile(path, []byte("not a key"), 0o644))

	_, err := LoadPublicKey(path)
	assert.Error(t, err)
}

func TestEnsureKeyPair(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "id_ed25519")

	first, err := EnsureKeyPair(path)
	require.NoError(t, err)

	second, err := EnsureKeyPair(path)
	require.NoError(t, err)
	assert.Equal(t, first.PublicKeyString(), second.PublicKeyString(), "existing pair is reused")
}
