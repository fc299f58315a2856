package adapters

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// generateTestKey writes a fresh armored private key and the matching
// armored public key into dir, returning both paths.
func generateTestKey(t *testing.T, dir string) (privatePath string, publicPath string) {
	t.Helper()
	entity, err := openpgp.NewEntity("Bundle Signing Test", "", "signing@test.invalid", nil)
	require.NoError(t, err)

	privatePath = filepath.Join(dir, "signing-key.asc")
	privateFile, err := os.Create(privatePath)
	require.NoError(t, err)
	privateArmor, err := armor.Encode(privateFile, openpgp.PrivateKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.SerializePrivate(privateArmor, nil))
	require.NoError(t, privateArmor.Close())
	require.NoError(t, privateFile.Close())

	publicPath = filepath.Join(dir, "signing-key.pub.asc")
	publicFile, err := os.Create(publicPath)
	require.NoError(t, err)
	publicArmor, err := armor.Encode(publicFile, openpgp.PublicKeyType, nil)
	require.NoError(t, err)
	require.NoError(t, entity.Serialize(publicArmor))
	require.NoError(t, publicArmor.Close())
	require.NoError(t, publicFile.Close())
	return privatePath, publicPath
}

func TestGPGSignAndVerify(t *testing.T) {
	dir := t.TempDir()
	privatePath, publicPath := generateTestKey(t, dir)

	messagePath := filepath.Join(dir, "payload.tar.gz")
	require.NoError(t, os.WriteFile(messagePath, []byte("bundle payload bytes"), 0644))

	keysDir := filepath.Join(dir, "keys")
	require.NoError(t, os.MkdirAll(keysDir, 0755))
	data, err := os.ReadFile(publicPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(keysDir, "release.asc"), data, 0644))

	signer := NewGPGSignerAdapter(privatePath)
	require.NoError(t, signer.Ready())

	signaturePath, err := signer.Sign(messagePath)
	require.NoError(t, err)
	assert.Equal(t, messagePath+".asc", signaturePath)

	require.NoError(t, signer.Verify(messagePath, signaturePath, keysDir))
}

func TestGPGVerifyRejectsTamperedMessage(t *testing.T) {
	dir := t.TempDir()
	privatePath, publicPath := generateTestKey(t, dir)

	messagePath := filepath.Join(dir, "payload.tar.gz")
	require.NoError(t, os.WriteFile(messagePath, []byte("bundle payload bytes"), 0644))

	keysDir := filepath.Join(dir, "keys")
	require.NoError(t, os.MkdirAll(keysDir, 0755))
	data, err := os.ReadFile(publicPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(keysDir, "release.asc"), data, 0644))

	signer := NewGPGSignerAdapter(privatePath)
	signaturePath, err := signer.Sign(messagePath)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(messagePath, []byte("bundle payload bytes, altered"), 0644))
	require.Error(t, signer.Verify(messagePath, signaturePath, keysDir))
}

func TestGPGVerifySkipsUnreadableKeyFiles(t *testing.T) {
	dir := t.TempDir()
	privatePath, publicPath := generateTestKey(t, dir)

	messagePath := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(messagePath, []byte("payload"), 0644))

	keysDir := filepath.Join(dir, "keys")
	require.NoError(t, os.MkdirAll(keysDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(keysDir, "README"), []byte("not a key"), 0644))
	data, err := os.ReadFile(publicPath)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(keysDir, "release.asc"), data, 0644))

	signer := NewGPGSignerAdapter(privatePath)
	signaturePath, err := signer.Sign(messagePath)
	require.NoError(t, err)
	require.NoError(t, signer.Verify(messagePath, signaturePath, keysDir))
}

func TestGPGSignerNotReadyWithoutKey(t *testing.T) {
	signer := NewGPGSignerAdapter("")
	require.Error(t, signer.Ready())

	signer = NewGPGSignerAdapter(filepath.Join(t.TempDir(), "absent.asc"))
	require.Error(t, signer.Ready())
}

func TestGPGVerifyEmptyKeyringDirFails(t *testing.T) {
	dir := t.TempDir()
	privatePath, _ := generateTestKey(t, dir)

	messagePath := filepath.Join(dir, "payload.bin")
	require.NoError(t, os.WriteFile(messagePath, []byte("payload"), 0644))

	signer := NewGPGSignerAdapter(privatePath)
	signaturePath, err := signer.Sign(messagePath)
	require.NoError(t, err)

	emptyDir := filepath.Join(dir, "empty-keys")
	require.NoError(t, os.MkdirAll(emptyDir, 0755))
	require.Error(t, signer.Verify(messagePath, signaturePath, emptyDir))
}
