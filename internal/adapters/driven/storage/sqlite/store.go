package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/quarry-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/quarry-cli/internal/core/domain"
	"github.com/custodia-labs/quarry-cli/internal/core/ports/driven"
)

// jsonNull is the JSON representation of null.
const jsonNull = "null"

var _ driven.Ledger = (*Store)(nil)

// Store is the SQLite-backed ledger of documents and fragments.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite ledger at the specified data directory.
// If dataDir is empty, defaults to ~/.quarry/data/ledger.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".quarry", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "ledger.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Documents ====================

// UpsertDocument stores a document, keyed by its unique path.
func (s *Store) UpsertDocument(ctx context.Context, doc *domain.Document) (int64, error) {
	if doc == nil || doc.Path == "" {
		return 0, fmt.Errorf("upserting document: %w", domain.ErrInvalidInput)
	}

	tagsJSON, err := json.Marshal(tagsOrEmpty(doc.Tags))
	if err != nil {
		return 0, fmt.Errorf("marshalling tags: %w", err)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO documents (path, title, source_type, tags, fragment_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			title = excluded.title,
			source_type = excluded.source_type,
			tags = excluded.tags,
			updated_at = excluded.updated_at
		RETURNING id
	`, doc.Path, doc.Title, doc.SourceType, string(tagsJSON),
		doc.FragmentCount, doc.CreatedAt, doc.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("saving document: %w", err)
	}

	doc.ID = id
	return id, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, title, source_type, tags, fragment_count, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// GetDocumentByPath retrieves a document by its unique path.
func (s *Store) GetDocumentByPath(ctx context.Context, path string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, title, source_type, tags, fragment_count, created_at, updated_at
		FROM documents WHERE path = ?
	`, path)
	return scanDocument(row)
}

// ListDocuments returns all documents ordered by path.
func (s *Store) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, title, source_type, tags, fragment_count, created_at, updated_at
		FROM documents ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// SetFragmentCount records the number of fragments emitted for a document.
func (s *Store) SetFragmentCount(ctx context.Context, documentID int64, count int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET fragment_count = ?, updated_at = ? WHERE id = ?
	`, count, time.Now().UTC(), documentID)
	if err != nil {
		return fmt.Errorf("setting fragment count: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document and its fragments. Fragments are
// deleted explicitly rather than through the cascade so the full-text
// triggers always fire.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM fragments WHERE document_id = ?", id); err != nil {
		return fmt.Errorf("deleting fragments: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ==================== Fragments ====================

// InsertFragmentIfNew persists the fragment unless its content hash already
// exists anywhere in the ledger. The hash is computed here so all callers
// share one identity rule. A duplicate owned by the same document has its
// ordinal refreshed in place.
func (s *Store) InsertFragmentIfNew(ctx context.Context, frag *domain.Fragment) (string, bool, error) {
	if frag == nil || strings.TrimSpace(frag.Content) == "" {
		return "", false, fmt.Errorf("inserting fragment: %w", domain.ErrInvalidInput)
	}

	hash := domain.HashContent(frag.Content)
	frag.ContentHash = hash

	refreshed, err := s.db.ExecContext(ctx,
		`UPDATE fragments SET ordinal = ? WHERE content_hash = ? AND document_id = ?`,
		frag.Ordinal, hash, frag.DocumentID)
	if err != nil {
		return "", false, fmt.Errorf("refreshing fragment ordinal: %w", err)
	}
	if n, _ := refreshed.RowsAffected(); n > 0 {
		return hash, false, nil
	}

	tagsJSON, err := json.Marshal(tagsOrEmpty(frag.Tags))
	if err != nil {
		return "", false, fmt.Errorf("marshalling tags: %w", err)
	}
	metadataJSON, err := json.Marshal(frag.Metadata)
	if err != nil {
		return "", false, fmt.Errorf("marshalling metadata: %w", err)
	}

	if frag.CreatedAt.IsZero() {
		frag.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO fragments (document_id, ordinal, content, content_hash, split_kind, tags, metadata, vector_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING
	`, frag.DocumentID, frag.Ordinal, frag.Content, hash, string(frag.Split),
		string(tagsJSON), string(metadataJSON), frag.VectorID, frag.CreatedAt)
	if err != nil {
		return "", false, fmt.Errorf("saving fragment: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("checking fragment insert: %w", err)
	}
	if n == 0 {
		return hash, false, nil
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", false, fmt.Errorf("reading fragment id: %w", err)
	}
	frag.ID = id
	return hash, true, nil
}

// PruneFragments deletes the document's fragments whose content hash is not
// in keep. A document revision calls this after its surviving hashes are
// known, so stale rows never collide with fresh ordinals.
func (s *Store) PruneFragments(ctx context.Context, documentID int64, keep []string) (int, error) {
	query := "DELETE FROM fragments WHERE document_id = ?"
	args := make([]any, 0, len(keep)+1)
	args = append(args, documentID)
	if len(keep) > 0 {
		placeholders := strings.Repeat("?, ", len(keep)-1) + "?"
		query += " AND content_hash NOT IN (" + placeholders + ")"
		for _, hash := range keep {
			args = append(args, hash)
		}
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("pruning fragments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned fragments: %w", err)
	}
	return int(n), nil
}

const fragmentColumns = `id, document_id, ordinal, content, content_hash, split_kind, tags, metadata, vector_id, created_at`

// GetFragmentByHash retrieves a fragment by content hash.
func (s *Store) GetFragmentByHash(ctx context.Context, hash string) (*domain.Fragment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments WHERE content_hash = ?`, hash)
	return scanFragment(row)
}

// GetFragmentByVectorID retrieves the fragment assigned an index position.
func (s *Store) GetFragmentByVectorID(ctx context.Context, vectorID int64) (*domain.Fragment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+fragmentColumns+` FROM fragments WHERE vector_id = ?`, vectorID)
	return scanFragment(row)
}

// ListFragments returns a document's fragments ordered by ordinal.
func (s *Store) ListFragments(ctx context.Context, documentID int64) ([]domain.Fragment, error) {
	return s.queryFragments(ctx,
		`SELECT `+fragmentColumns+` FROM fragments WHERE document_id = ? ORDER BY ordinal`, documentID)
}

// SetVectorID records the vector index position on a fragment.
func (s *Store) SetVectorID(ctx context.Context, hash string, vectorID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE fragments SET vector_id = ? WHERE content_hash = ?`, vectorID, hash)
	if err != nil {
		return fmt.Errorf("setting vector id: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ClearVectorIDs unsets every vector assignment, used before a reindex.
func (s *Store) ClearVectorIDs(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE fragments SET vector_id = NULL`); err != nil {
		return fmt.Errorf("clearing vector ids: %w", err)
	}
	return nil
}

// FragmentsMissingVector returns fragments never assigned an index position.
func (s *Store) FragmentsMissingVector(ctx context.Context) ([]domain.Fragment, error) {
	return s.queryFragments(ctx,
		`SELECT `+fragmentColumns+` FROM fragments WHERE vector_id IS NULL ORDER BY document_id, ordinal`)
}

// AllFragments returns every fragment ordered by document then ordinal.
func (s *Store) AllFragments(ctx context.Context) ([]domain.Fragment, error) {
	return s.queryFragments(ctx,
		`SELECT `+fragmentColumns+` FROM fragments ORDER BY document_id, ordinal`)
}

// CountFragments returns the total fragment count.
func (s *Store) CountFragments(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fragments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting fragments: %w", err)
	}
	return n, nil
}

// ==================== Tags ====================

// TagVocabulary returns the distinct tag set across fragments and documents,
// case-insensitively deduplicated preserving first-seen casing.
func (s *Store) TagVocabulary(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT value FROM fragments, json_each(fragments.tags)
		UNION ALL
		SELECT value FROM documents, json_each(documents.tags)
	`)
	if err != nil {
		return nil, fmt.Errorf("querying tags: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	var tags []string
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("scanning tag: %w", err)
		}
		tag = strings.TrimSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tags: %w", err)
	}

	sort.Strings(tags)
	return tags, nil
}

// FragmentsByTag returns fragments carrying the given tag, capped at limit,
// ordered by document then ordinal.
func (s *Store) FragmentsByTag(ctx context.Context, tag string, limit int) ([]domain.Fragment, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.queryFragments(ctx, `
		SELECT `+fragmentColumns+` FROM fragments
		WHERE id IN (
			SELECT fragments.id FROM fragments, json_each(fragments.tags)
			WHERE json_each.value = ? COLLATE NOCASE
		)
		ORDER BY document_id, ordinal
		LIMIT ?
	`, tag, limit)
}

// ==================== Scanning helpers ====================

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var tagsJSON string
	var createdAt, updatedAt sql.NullTime
	err := row.Scan(&doc.ID, &doc.Path, &doc.Title, &doc.SourceType,
		&tagsJSON, &doc.FragmentCount, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
		return nil, fmt.Errorf("unmarshaling tags: %w", err)
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		doc.UpdatedAt = updatedAt.Time
	}
	return &doc, nil
}

func scanFragment(row rowScanner) (*domain.Fragment, error) {
	var frag domain.Fragment
	var split string
	var tagsJSON, metadataJSON string
	var vectorID sql.NullInt64
	var createdAt sql.NullTime
	err := row.Scan(&frag.ID, &frag.DocumentID, &frag.Ordinal, &frag.Content,
		&frag.ContentHash, &split, &tagsJSON, &metadataJSON, &vectorID, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning fragment: %w", err)
	}

	frag.Split = domain.SplitKind(split)
	if err := json.Unmarshal([]byte(tagsJSON), &frag.Tags); err != nil {
		return nil, fmt.Errorf("unmarshaling tags: %w", err)
	}
	if metadataJSON != "" && metadataJSON != jsonNull {
		if err := json.Unmarshal([]byte(metadataJSON), &frag.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	if vectorID.Valid {
		v := vectorID.Int64
		frag.VectorID = &v
	}
	if createdAt.Valid {
		frag.CreatedAt = createdAt.Time
	}
	return &frag, nil
}

func (s *Store) queryFragments(ctx context.Context, query string, args ...any) ([]domain.Fragment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying fragments: %w", err)
	}
	defer rows.Close()

	var frags []domain.Fragment //nolint:prealloc // size unknown from query
	for rows.Next() {
		frag, err := scanFragment(rows)
		if err != nil {
			return nil, err
		}
		frags = append(frags, *frag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fragments: %w", err)
	}
	return frags, nil
}

// tagsOrEmpty keeps the JSON column an array, never null.
func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
