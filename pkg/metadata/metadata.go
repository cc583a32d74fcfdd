// Package metadata signs and verifies exported artefacts with SHA-256 hashes.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Metadata verification errors.
var (
	ErrNoHashFound  = errors.New("no hash found in metadata")
	ErrHashMismatch = errors.New("hash mismatch")
	ErrSizeMismatch = errors.New("size mismatch")
)

// Metadata describes the state of one signed file.
type Metadata struct {
	LastModify time.Time `json:"lastModify"`
	Version    string    `json:"version,omitempty"`
	Hash       string    `json:"hash"`
	Size       int64     `json:"size"`
	Validation bool      `json:"validation"`
}

// CalculateHash computes the hex SHA-256 hash of content.
func CalculateHash(content []byte) string {
	hash := sha256.Sum256(content)

	return hex.EncodeToString(hash[:])
}

// HashFile streams a file through SHA-256 and returns the hash and byte size.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()

	size, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// Sign hashes the file at path and stamps it with the current time.
func Sign(path, version string, validated bool) (*Metadata, error) {
	hash, size, err := HashFile(path)
	if err != nil {
		return nil, err
	}

	return &Metadata{
		LastModify: time.Now().UTC().Truncate(time.Second),
		Version:    version,
		Hash:       hash,
		Size:       size,
		Validation: validated,
	}, nil
}

// Verify checks that the file at path still matches its metadata.
func Verify(path string, meta Metadata) error {
	if meta.Hash == "" {
		return ErrNoHashFound
	}

	calculated, size, err := HashFile(path)
	if err != nil {
		return err
	}

	if size != meta.Size {
		return fmt.Errorf("%w: %s expected %d bytes, got %d", ErrSizeMismatch, path, meta.Size, size)
	}

	if calculated != meta.Hash {
		return fmt.Errorf("%w: %s expected %s, got %s", ErrHashMismatch, path, meta.Hash, calculated)
	}

	return nil
}
