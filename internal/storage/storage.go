package storage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/crypto/hkdf"
	_ "modernc.org/sqlite"

	apperrors "github.com/PrabinKa/ShipMate/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	name  TEXT PRIMARY KEY,
	value BLOB NOT NULL
);
`

// Region is the agent's durable, encrypted key-value store. Values are
// sealed with AES-256-GCM before they reach disk; every write is committed
// before the call returns. A missing or undecryptable value reads back as
// absent, never as an error.
type Region struct {
	db     *sql.DB
	aead   cipher.AEAD
	logger *slog.Logger
}

// Open opens (creating if needed) the region at path. The encryption key is
// derived from the passphrase with HKDF-SHA256.
func Open(path, passphrase string, logger *slog.Logger) (*Region, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open storage region: %w", err)
	}
	// One writer at a time keeps every Set synchronously durable.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init storage schema: %w", err)
	}

	aead, err := newAEAD(passphrase)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Region{db: db, aead: aead, logger: logger}, nil
}

func newAEAD(passphrase string) (cipher.AEAD, error) {
	h := hkdf.New(sha256.New, []byte(passphrase), []byte("shipmate-offline-storage"), []byte("kv-encryption"))
	key := make([]byte, 32)
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive storage key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init storage cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// Set seals value and durably stores it under name.
func (r *Region) Set(name string, value []byte) error {
	nonce := make([]byte, r.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return apperrors.Storage(err)
	}
	sealed := append(nonce, r.aead.Seal(nil, nonce, value, nil)...)

	_, err := r.db.Exec(
		`INSERT INTO kv (name, value) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
		name, sealed,
	)
	if err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

// Get returns the plaintext stored under name, or (nil, nil) when the key is
// absent. A value that cannot be unsealed is treated as absent.
func (r *Region) Get(name string) ([]byte, error) {
	var sealed []byte
	err := r.db.QueryRow(`SELECT value FROM kv WHERE name = ?`, name).Scan(&sealed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	ns := r.aead.NonceSize()
	if len(sealed) < ns {
		r.logger.Warn("discarding truncated value", slog.String("key", name))
		return nil, nil
	}
	plain, err := r.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		r.logger.Warn("discarding undecryptable value", slog.String("key", name))
		return nil, nil
	}
	return plain, nil
}

// Delete removes the value stored under name. Deleting an absent key is not
// an error.
func (r *Region) Delete(name string) error {
	if _, err := r.db.Exec(`DELETE FROM kv WHERE name = ?`, name); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

// Close releases the underlying database handle.
func (r *Region) Close() error {
	return r.db.Close()
}
