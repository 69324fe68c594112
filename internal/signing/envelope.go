package signing

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// SigType is the only algorithm written and accepted
const SigType = "ed25519"

// SigSuffix is appended to a policy path to find its detached signature
const SigSuffix = ".sig"

// ErrSignatureInvalid means the signature does not match the data or key
var ErrSignatureInvalid = errors.New("policy signature verification failed")

// Header is the first line of a signature file
type Header struct {
	SigType string `json:"sig_type"`
	KeyID   string `json:"key_id"`
}

// Envelope is a parsed signature file: a JSON header line, then hex signature
type Envelope struct {
	Header    Header
	Signature []byte
}

// Sign returns a signature envelope over data
func Sign(data []byte, key ed25519.PrivateKey) []byte {
	pub := key.Public().(ed25519.PublicKey)
	header, _ := json.Marshal(Header{SigType: SigType, KeyID: KeyID(pub)})
	sig := ed25519.Sign(key, data)
	return []byte(string(header) + "\n" + hex.EncodeToString(sig) + "\n")
}

// ReadEnvelope parses a signature file
func ReadEnvelope(data []byte) (*Envelope, error) {
	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 2)
	if len(lines) != 2 {
		return nil, errors.New("invalid signature format: expected header and payload")
	}

	var env Envelope
	if err := json.Unmarshal([]byte(lines[0]), &env.Header); err != nil {
		return nil, fmt.Errorf("invalid signature header: %w", err)
	}
	if env.Header.SigType != SigType {
		return nil, fmt.Errorf("unsupported signature type: %q", env.Header.SigType)
	}

	sig, err := hex.DecodeString(strings.TrimSpace(lines[1]))
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, errors.New("invalid signature size")
	}
	env.Signature = sig
	return &env, nil
}

// Verify checks an envelope against data and a public key. A key ID
// mismatch is reported before the cryptographic check.
func Verify(data []byte, env *Envelope, pub ed25519.PublicKey) error {
	if id := KeyID(pub); env.Header.KeyID != "" && env.Header.KeyID != id {
		return fmt.Errorf("%w: signed by key %s, expected %s", ErrSignatureInvalid, env.Header.KeyID, id)
	}
	if !ed25519.Verify(pub, data, env.Signature) {
		return ErrSignatureInvalid
	}
	return nil
}

// SignFile writes path+SigSuffix (or out, when set) and returns its path
func SignFile(path, privateKeyPath, out string) (string, error) {
	key, err := LoadPrivateKey(privateKeyPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	if out == "" {
		out = path + SigSuffix
	}
	if err := os.WriteFile(out, Sign(data, key), 0644); err != nil {
		return "", fmt.Errorf("failed to write signature: %w", err)
	}
	return out, nil
}

// VerifyFile checks the detached signature of path. sigPath defaults to
// path+SigSuffix.
func VerifyFile(path, sigPath, publicKeyPath string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if sigPath == "" {
		sigPath = path + SigSuffix
	}
	return VerifyBytes(data, sigPath, publicKeyPath)
}

// VerifyBytes checks data already read by the caller against the signature
// at sigPath, so the verified bytes are the ones the caller goes on to use.
func VerifyBytes(data []byte, sigPath, publicKeyPath string) error {
	pub, err := LoadPublicKey(publicKeyPath)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("failed to read signature: %w", err)
	}
	env, err := ReadEnvelope(raw)
	if err != nil {
		return err
	}
	return Verify(data, env, pub)
}
