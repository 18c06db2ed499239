// Package keygen generates and stores the SSH key pairs used for VM admin
// logins. Private keys are PEM-encoded; public keys use the OpenSSH
// authorized_keys format the compute API expects.
package keygen

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// KeyPair holds a key pair in ready-to-use formats.
type KeyPair struct {
	// PrivateKey is PEM-encoded.
	PrivateKey []byte
	// PublicKey is one authorized_keys line.
	PublicKey []byte
}

// GenerateED25519 generates an Ed25519 key pair, the default for new VMs.
func GenerateED25519() (*KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to encode private key: %w", err)
	}
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKeyPEM,
		PublicKey:  ssh.MarshalAuthorizedKey(sshPub),
	}, nil
}

// GenerateRSA generates an RSA key pair for images whose sshd rejects
// Ed25519. 2048 bits is the floor; 4096 when paranoia is cheap.
func GenerateRSA(bits int) (*KeyPair, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	if err := privateKey.Validate(); err != nil {
		return nil, fmt.Errorf("failed to validate RSA key: %w", err)
	}

	privDER := x509.MarshalPKCS1PrivateKey(privateKey)
	privateKeyPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: privDER})

	sshPub, err := ssh.NewPublicKey(&privateKey.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	return &KeyPair{
		PrivateKey: privateKeyPEM,
		PublicKey:  ssh.MarshalAuthorizedKey(sshPub),
	}, nil
}

// Save writes the pair to path and path+".pub" with conventional SSH
// permissions.
func (k *KeyPair) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, k.PrivateKey, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(path+".pub", k.PublicKey, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

// PublicKeyString returns the public key as a trimmed authorized_keys line.
func (k *KeyPair) PublicKeyString() string {
	return strings.TrimSpace(string(k.PublicKey))
}

// LoadPublicKey reads and validates an authorized_keys format public key
// file, returning it as a trimmed single line.
func LoadPublicKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read public key: %w", err)
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey(data); err != nil {
		return "", fmt.Errorf("invalid public key in %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// EnsureKeyPair loads the key pair at path, generating and saving a fresh
// Ed25519 pair when none exists.
func EnsureKeyPair(path string) (*KeyPair, error) {
	priv, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		pair, err := GenerateED25519()
		if err != nil {
			return nil, err
		}
		if err := pair.Save(path); err != nil {
			return nil, err
		}
		return pair, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	pub, err := os.ReadFile(path + ".pub")
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	return &KeyPair{PrivateKey: priv, PublicKey: pub}, nil
}
