// Package signing signs policy declarations with Ed25519 so a run can refuse
// a policy file that was not published by its owner.
package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

const (
	privateKeyType = "ED25519 PRIVATE KEY"
	publicKeyType  = "ED25519 PUBLIC KEY"
)

// GenerateKeys writes a fresh PEM keypair. The private key file is 0600.
func GenerateKeys(privateKeyPath, publicKeyPath string) error {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	if err := writePEM(privateKeyPath, privateKeyType, privateKey, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := writePEM(publicKeyPath, publicKeyType, publicKey, 0644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}

func writePEM(path, blockType string, der []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if err := pem.Encode(f, &pem.Block{Type: blockType, Bytes: der}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readPEM(path, blockType string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("failed to decode PEM block")
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("invalid key type: expected %s, got %s", blockType, block.Type)
	}
	return block.Bytes, nil
}

// LoadPrivateKey reads a PEM private key written by GenerateKeys
func LoadPrivateKey(path string) (ed25519.PrivateKey, error) {
	der, err := readPEM(path, privateKeyType)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	if len(der) != ed25519.PrivateKeySize {
		return nil, errors.New("failed to read private key: invalid key size")
	}
	return ed25519.PrivateKey(der), nil
}

// LoadPublicKey reads a PEM public key written by GenerateKeys
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	der, err := readPEM(path, publicKeyType)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key: %w", err)
	}
	if len(der) != ed25519.PublicKeySize {
		return nil, errors.New("failed to read public key: invalid key size")
	}
	return ed25519.PublicKey(der), nil
}

// KeyID is a short, stable name for a public key
func KeyID(pub ed25519.PublicKey) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:8])
}
