package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
	"github.com/stockpilot/stockpilot/internal/snapshot"
	"github.com/stockpilot/stockpilot/internal/storage"
)

// Store answers backend queries from a parquet snapshot of the Inventory table,
// exposed to an in-process DuckDB as a view.
type Store struct {
	objects storage.ObjectStore

	mu      sync.RWMutex
	db      *sql.DB
	workDir string
	key     string
}

func New(objects storage.ObjectStore) *Store {
	return &Store{objects: objects}
}

// OpenLatest loads whichever snapshot the LATEST pointer names.
func OpenLatest(ctx context.Context, objects storage.ObjectStore) (*Store, error) {
	key, err := snapshot.Latest(ctx, objects)
	if err != nil {
		return nil, err
	}
	store := New(objects)
	if err := store.Load(ctx, key); err != nil {
		return nil, err
	}
	return store, nil
}

// Load downloads the snapshot object and swaps it in for subsequent queries.
func (s *Store) Load(ctx context.Context, objectKey string) error {
	if s.objects == nil {
		return fmt.Errorf("object store is required")
	}
	if strings.TrimSpace(objectKey) == "" {
		return fmt.Errorf("snapshot key is required")
	}

	workDir, err := os.MkdirTemp("", "stockpilot-snapshot-")
	if err != nil {
		return fmt.Errorf("create snapshot temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	localPath, err := s.download(ctx, objectKey, workDir)
	if err != nil {
		cleanup()
		return err
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		cleanup()
		return fmt.Errorf("open duckdb: %w", err)
	}

	viewSQL := fmt.Sprintf(`CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)`, backend.QuoteIdent(inventory.TableName), quoteString(localPath))
	if _, err := db.ExecContext(ctx, viewSQL); err != nil {
		_ = db.Close()
		cleanup()
		return fmt.Errorf("create inventory view: %w", err)
	}

	s.mu.Lock()
	oldDB, oldDir := s.db, s.workDir
	s.db, s.workDir, s.key = db, workDir, objectKey
	s.mu.Unlock()

	if oldDB != nil {
		_ = oldDB.Close()
	}
	if oldDir != "" {
		_ = os.RemoveAll(oldDir)
	}
	return nil
}

// download copies the snapshot object into dir so read_parquet can open it.
func (s *Store) download(ctx context.Context, objectKey, dir string) (string, error) {
	reader, err := s.objects.Get(ctx, objectKey)
	if err != nil {
		return "", fmt.Errorf("get snapshot %q: %w", objectKey, err)
	}
	defer func() { _ = reader.Close() }()

	localPath := filepath.Join(dir, path.Base(objectKey))
	file, err := os.Create(localPath)
	if err != nil {
		return "", fmt.Errorf("create local snapshot: %w", err)
	}
	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", fmt.Errorf("copy snapshot %q: %w", objectKey, err)
	}
	if written == 0 {
		return "", fmt.Errorf("snapshot %q is empty", objectKey)
	}
	return localPath, nil
}

// Refresh loads the latest snapshot when the LATEST pointer has moved since the
// last load. It reports whether a new snapshot was swapped in.
func (s *Store) Refresh(ctx context.Context) (bool, error) {
	key, err := snapshot.Latest(ctx, s.objects)
	if err != nil {
		return false, err
	}
	if key == s.SnapshotKey() {
		return false, nil
	}
	if err := s.Load(ctx, key); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) SnapshotKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

func (s *Store) Select(ctx context.Context, query backend.Query) ([]inventory.Row, error) {
	sqlText, args, err := backend.BuildSelect(inventory.TableName, query)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, fmt.Errorf("no snapshot loaded")
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	out := make([]inventory.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		row := make(inventory.Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, filters []backend.Filter) (int64, error) {
	sqlText, args, err := backend.BuildCount(inventory.TableName, filters)
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, fmt.Errorf("no snapshot loaded")
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, sqlText, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("execute count: %w", err)
	}
	return count, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	if s.db != nil {
		err = s.db.Close()
		s.db = nil
	}
	if s.workDir != "" {
		_ = os.RemoveAll(s.workDir)
		s.workDir = ""
	}
	return err
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
