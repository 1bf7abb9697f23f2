package session

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
	"golang.org/x/crypto/pbkdf2"
)

// Key derivation parameters for the auth-key sealing key. The API hash is
// the only secret both the app and the platform share, so it doubles as the
// passphrase; the phone number salts it so two accounts in one store never
// share a key.
const (
	keyIterations = 4096
	keyLength     = 32
	saltPrefix    = "telephasma-session:"
)

// Store persists platform sessions and a small peer cache in SQLite.
// Auth keys are sealed with AES-GCM before they touch disk; the sealing key
// is derived from the API hash and never stored.
type Store struct {
	db      *sql.DB
	dbPath  string
	apiHash string
}

// Open opens or creates the session store under dir. The API hash seeds
// the at-rest encryption of auth keys; opening a store with a different
// hash makes existing keys unreadable.
func Open(dir, apiHash string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	dbPath := filepath.Join(dir, "sessions.db")

	db, err := sql.Open("sqlite", dbPath+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{
		db:      db,
		dbPath:  dbPath,
		apiHash: apiHash,
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// createTables creates the schema if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	-- Sessions hold one sealed auth key per phone number
	CREATE TABLE IF NOT EXISTS sessions (
		phone TEXT PRIMARY KEY,
		auth_key BLOB NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Peers cache resolved entities so the UI works while disconnected
	CREATE TABLE IF NOT EXISTS peers (
		id INTEGER PRIMARY KEY,
		username TEXT,
		title TEXT,
		kind TEXT,
		seen_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_peers_seen ON peers(seen_at);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAuthKey seals and stores the auth key for a phone number.
func (s *Store) SaveAuthKey(ctx context.Context, phone string, authKey []byte) error {
	sealed, err := s.seal(phone, authKey)
	if err != nil {
		return fmt.Errorf("failed to seal auth key: %w", err)
	}

	query := `
	INSERT INTO sessions (phone, auth_key)
	VALUES (?, ?)
	ON CONFLICT(phone) DO UPDATE SET
		auth_key = excluded.auth_key,
		updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, phone, sealed); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// AuthKey retrieves and unseals the auth key for a phone number.
// Returns nil without error when no session is stored.
func (s *Store) AuthKey(ctx context.Context, phone string) ([]byte, error) {
	var sealed []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT auth_key FROM sessions WHERE phone = ?", phone,
	).Scan(&sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	authKey, err := s.unseal(phone, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal auth key: %w", err)
	}
	return authKey, nil
}

// DeleteSession removes the stored session for a phone number.
func (s *Store) DeleteSession(ctx context.Context, phone string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE phone = ?", phone); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Peer is one cached entity.
type Peer struct {
	ID       int64
	Username string
	Title    string
	Kind     string
	SeenAt   time.Time
}

// CachePeer inserts or refreshes a peer cache entry.
func (s *Store) CachePeer(ctx context.Context, p *Peer) error {
	query := `
	INSERT INTO peers (id, username, title, kind)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		username = excluded.username,
		title = excluded.title,
		kind = excluded.kind,
		seen_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Username, p.Title, p.Kind); err != nil {
		return fmt.Errorf("failed to cache peer: %w", err)
	}
	return nil
}

// RecentPeers returns the most recently seen cached peers.
func (s *Store) RecentPeers(ctx context.Context, limit int) ([]Peer, error) {
	query := `
	SELECT id, username, title, kind, seen_at
	FROM peers
	ORDER BY seen_at DESC, id
	LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query peers: %w", err)
	}
	defer rows.Close()

	var peers []Peer
	for rows.Next() {
		var p Peer
		var username, title, kind sql.NullString
		var seenAt string

		if err := rows.Scan(&p.ID, &username, &title, &kind, &seenAt); err != nil {
			return nil, fmt.Errorf("failed to scan peer: %w", err)
		}
		p.Username = username.String
		p.Title = title.String
		p.Kind = kind.String
		p.SeenAt = parseTimestamp(seenAt)
		peers = append(peers, p)
	}

	return peers, rows.Err()
}

// derivedKey builds the per-phone sealing key.
func (s *Store) derivedKey(phone string) []byte {
	return pbkdf2.Key([]byte(s.apiHash), []byte(saltPrefix+phone), keyIterations, keyLength, sha256.New)
}

// seal encrypts plaintext with AES-GCM under the per-phone key. The nonce
// is prepended to the ciphertext.
func (s *Store) seal(phone string, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.derivedKey(phone))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// unseal reverses seal.
func (s *Store) unseal(phone string, sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(s.derivedKey(phone))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("sealed blob too short")
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

// timestampFormats contains the timestamp formats that SQLite may return.
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple
// formats, returning zero time when none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
