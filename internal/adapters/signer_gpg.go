package adapters

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ZanzyTHEbar/errbuilder-go"

	"gapsync/internal/ports"
)

// GPGSignerAdapter signs and verifies bundle archives with detached
// armored OpenPGP signatures. KeyPath points at an armored private key
// for signing; verification uses whatever public keys travel inside the
// bundle's keys/ directory.
//
// Encrypted private keys are not supported: export runs unattended on
// the builder, so the key must be usable without a passphrase.
type GPGSignerAdapter struct {
	KeyPath string
}

func NewGPGSignerAdapter(keyPath string) GPGSignerAdapter {
	return GPGSignerAdapter{KeyPath: keyPath}
}

func (a GPGSignerAdapter) Ready() error {
	_, err := a.loadSigner()
	return err
}

func (a GPGSignerAdapter) Sign(path string) (string, error) {
	signer, err := a.loadSigner()
	if err != nil {
		return "", err
	}
	message, err := os.Open(path)
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open file for signing").
			WithCause(err)
	}
	defer message.Close()

	signaturePath := path + ".asc"
	out, err := os.CreateTemp(filepath.Dir(path), ".sig-*")
	if err != nil {
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to create signature temp file").
			WithCause(err)
	}
	tmpPath := out.Name()
	if err := openpgp.ArmoredDetachSign(out, signer, message, nil); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("detached signing failed").
			WithCause(err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to close signature file").
			WithCause(err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to set signature file mode").
			WithCause(err)
	}
	if err := os.Rename(tmpPath, signaturePath); err != nil {
		os.Remove(tmpPath)
		return "", errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to move signature into place").
			WithCause(err)
	}
	return signaturePath, nil
}

func (a GPGSignerAdapter) Verify(path string, signaturePath string, keyringDir string) error {
	keyring, err := loadKeyring(keyringDir)
	if err != nil {
		return err
	}
	message, err := os.Open(path)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open signed file").
			WithCause(err)
	}
	defer message.Close()
	signature, err := os.Open(signaturePath)
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to open signature file").
			WithCause(err)
	}
	defer signature.Close()

	if _, err := openpgp.CheckArmoredDetachedSignature(keyring, message, signature, nil); err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeDataLoss).
			WithMsg("signature verification failed").
			WithCause(err)
	}
	return nil
}

func (a GPGSignerAdapter) loadSigner() (*openpgp.Entity, error) {
	if strings.TrimSpace(a.KeyPath) == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no signing key configured")
	}
	file, err := os.Open(a.KeyPath)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to open signing key").
			WithCause(err)
	}
	defer file.Close()
	entities, err := openpgp.ReadArmoredKeyRing(file)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to read signing key").
			WithCause(err)
	}
	for _, entity := range entities {
		if entity.PrivateKey == nil {
			continue
		}
		if entity.PrivateKey.Encrypted {
			return nil, errbuilder.New().
				WithCode(errbuilder.CodeFailedPrecondition).
				WithMsg("signing key is passphrase protected")
		}
		return entity, nil
	}
	return nil, errbuilder.New().
		WithCode(errbuilder.CodeFailedPrecondition).
		WithMsg("no private key in signing keyring")
}

// loadKeyring collects every readable public key under dir. Armored and
// binary key files are both accepted; unreadable files are skipped so a
// stray README in keys/ does not break verification.
func loadKeyring(dir string) (openpgp.EntityList, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("failed to read keyring directory").
			WithCause(err)
	}
	var keyring openpgp.EntityList
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		file, err := os.Open(path)
		if err != nil {
			continue
		}
		entities, err := openpgp.ReadArmoredKeyRing(file)
		if err != nil {
			if _, seekErr := file.Seek(0, 0); seekErr == nil {
				entities, err = openpgp.ReadKeyRing(file)
			}
		}
		file.Close()
		if err != nil {
			continue
		}
		keyring = append(keyring, entities...)
	}
	if len(keyring) == 0 {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeFailedPrecondition).
			WithMsg("no usable public keys in keyring directory")
	}
	return keyring, nil
}

var _ ports.SignerPort = GPGSignerAdapter{}
