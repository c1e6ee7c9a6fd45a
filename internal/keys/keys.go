package keys

import (
	"crypto/rsa"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const KeySize = 2048

// DeriveRSAKeyPair deterministically generates the server's signing keys from
// a seed. Same seed always produces the same key pair, so grant and admin
// tokens stay verifiable across restarts without persisting key material.
func DeriveRSAKeyPair(masterSecret, externalURL string) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if masterSecret == "" {
		return nil, nil, fmt.Errorf("master secret is required for key derivation")
	}
	if externalURL == "" {
		return nil, nil, fmt.Errorf("external URL is required for key derivation")
	}

	// Combine secret and URL to create unique seed per deployment
	seed := masterSecret + externalURL
	hash := sha256.Sum256([]byte(seed))

	// Use HKDF to create a deterministic random source
	reader := hkdf.New(sha256.New, hash[:], []byte("lensvault-rsa-salt"), []byte("rsa-keypair"))

	privateKey, err := rsa.GenerateKey(&deterministicReader{reader}, KeySize)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate RSA key pair: %w", err)
	}

	return privateKey, &privateKey.PublicKey, nil
}

// deterministicReader wraps an io.Reader to satisfy rand.Reader interface
type deterministicReader struct {
	reader io.Reader
}

func (d *deterministicReader) Read(p []byte) (n int, err error) {
	return d.reader.Read(p)
}
