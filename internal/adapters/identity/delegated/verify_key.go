package delegated

import (
	"crypto"
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

// LoadVerifyKey reads a PEM public key used to check delegation signatures.
// Ed25519, ECDSA and RSA keys are accepted.
func LoadVerifyKey(path string) (crypto.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read delegation verify key: %w", err)
	}

	if key, err := jwt.ParseEdPublicKeyFromPEM(raw); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(raw); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseRSAPublicKeyFromPEM(raw); err == nil {
		return key, nil
	}

	return nil, fmt.Errorf("parse delegation verify key %s: %w", path, errors.New("not an Ed25519, ECDSA or RSA public key in PEM form"))
}
