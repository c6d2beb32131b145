// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filestore records immutable file versions in SQLite and opens
// their content. Each version resolves to a local URI and a declared MIME
// type; processors only ever read through it.
package filestore

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/files-processor/pkg/types"
)

// ErrNotFound is returned when no version matches the identifier.
var ErrNotFound = errors.New("object version not found")

const (
	defaultDBPath = "data/files.db"
	defaultBucket = "default"
	// sniffLen is how many bytes http.DetectContentType inspects.
	sniffLen = 512
)

// Store manages the object version database.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the SQLite database at cfg.DBPath and creates
// the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS object_versions (
			version_id TEXT PRIMARY KEY,
			bucket TEXT NOT NULL,
			key TEXT NOT NULL,
			uri TEXT NOT NULL,
			mimetype TEXT NOT NULL,
			size INTEGER NOT NULL,
			checksum TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_object_versions_key ON object_versions(bucket, key)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// AddOptions customizes AddFile.
type AddOptions struct {
	// Bucket defaults to "default".
	Bucket string
	// Key defaults to the file's base name.
	Key string
	// MimeType overrides detection from the extension and content.
	MimeType string
}

// AddFile registers the file at path as a new version. The file is not
// copied; the version's URI is the absolute path.
func (s *Store) AddFile(ctx context.Context, path string, opts AddOptions) (*types.ObjectVersion, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", abs, err)
	}
	defer f.Close()

	h := sha256.New()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading %s: %w", abs, err)
	}
	head = head[:n]
	h.Write(head)
	rest, err := io.Copy(h, f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", abs, err)
	}

	v := &types.ObjectVersion{
		VersionID: uuid.NewString(),
		Bucket:    opts.Bucket,
		Key:       opts.Key,
		URI:       abs,
		MimeType:  opts.MimeType,
		Size:      int64(n) + rest,
		Checksum:  "sha256:" + hex.EncodeToString(h.Sum(nil)),
		CreatedAt: time.Now().UTC(),
	}
	if v.Bucket == "" {
		v.Bucket = defaultBucket
	}
	if v.Key == "" {
		v.Key = filepath.Base(abs)
	}
	if v.MimeType == "" {
		v.MimeType = DetectMimeType(abs, head)
	}

	if err := s.Put(ctx, v); err != nil {
		return nil, err
	}
	return v, nil
}

// Put inserts a version record. Versions are immutable, so inserting an
// existing VersionID fails.
func (s *Store) Put(ctx context.Context, v *types.ObjectVersion) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO object_versions (version_id, bucket, key, uri, mimetype, size, checksum, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VersionID, v.Bucket, v.Key, v.URI, v.MimeType, v.Size, v.Checksum,
		v.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting version %s: %w", v.VersionID, err)
	}
	return nil
}

// Get returns the version with the given identifier, or ErrNotFound.
func (s *Store) Get(ctx context.Context, versionID string) (*types.ObjectVersion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT version_id, bucket, key, uri, mimetype, size, checksum, created_at
		 FROM object_versions WHERE version_id = ?`, versionID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, versionID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading version %s: %w", versionID, err)
	}
	return v, nil
}

// List returns all versions, newest first.
func (s *Store) List(ctx context.Context) ([]*types.ObjectVersion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version_id, bucket, key, uri, mimetype, size, checksum, created_at
		 FROM object_versions ORDER BY created_at DESC, version_id`)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	var out []*types.ObjectVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Open returns a reader over the version's content. The caller must close it.
func (s *Store) Open(v *types.ObjectVersion) (io.ReadCloser, error) {
	f, err := os.Open(v.URI)
	if err != nil {
		return nil, fmt.Errorf("opening version %s: %w", v.VersionID, err)
	}
	return f, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(sc scanner) (*types.ObjectVersion, error) {
	var v types.ObjectVersion
	var created string
	if err := sc.Scan(&v.VersionID, &v.Bucket, &v.Key, &v.URI, &v.MimeType, &v.Size, &v.Checksum, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", created, err)
	}
	v.CreatedAt = t
	return &v, nil
}

// DetectMimeType picks a MIME type from the file extension, falling back to
// content sniffing. Parameters such as charset are dropped.
func DetectMimeType(path string, head []byte) string {
	mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mt == "" {
		mt = http.DetectContentType(head)
	}
	if base, _, err := mime.ParseMediaType(mt); err == nil {
		return base
	}
	return mt
}
