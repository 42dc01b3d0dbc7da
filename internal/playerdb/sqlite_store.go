package playerdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps one SQLite database file per player under a base
// directory. Documents live in a single (scope, key, value) table so the
// historically schemaless store shape survives unchanged.
type SQLiteStore struct {
	baseDir string
	db      *sql.DB
	path    string
}

func NewSQLiteStore(baseDir string) *SQLiteStore {
	return &SQLiteStore{baseDir: baseDir}
}

func (s *SQLiteStore) Init(ctx context.Context, playerID, displayName string) error {
	if playerID == "" {
		return fmt.Errorf("player id is empty")
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("close previous store: %w", err)
		}
		s.db = nil
	}

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	path := filepath.Join(s.baseDir, playerID+".db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	// WAL mode reduces write latency by avoiding full fsync on every commit.
	// synchronous=NORMAL is safe with WAL and significantly faster than the default FULL.
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set sqlite pragmas: %w", err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	s.path = path
	return s.writeMeta(ctx, playerID, displayName)
}

func (s *SQLiteStore) writeMeta(ctx context.Context, playerID, displayName string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO store_meta(player_id, display_name, opened_at)
		VALUES(?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET display_name=excluded.display_name, opened_at=excluded.opened_at`,
		playerID, displayName, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write store meta: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) FindAll(ctx context.Context) (RawStore, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store is not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT scope, key, value FROM documents ORDER BY scope, key`)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	top := make(RawStore)
	scoped := make(map[string]map[string]json.RawMessage)
	for rows.Next() {
		var scope, key, value string
		if err := rows.Scan(&scope, &key, &value); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		if scope == "" {
			top[key] = json.RawMessage(value)
			continue
		}
		if scoped[scope] == nil {
			scoped[scope] = make(map[string]json.RawMessage)
		}
		scoped[scope][key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	// Scoped rows fold into one sub-document per scope, matching the shape
	// older single-file stores had.
	for scope, docs := range scoped {
		blob, err := json.Marshal(docs)
		if err != nil {
			return nil, fmt.Errorf("fold scope %q: %w", scope, err)
		}
		top[scope] = blob
	}
	return top, nil
}

func (s *SQLiteStore) Get(ctx context.Context, scope, key string, out any) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("store is not initialized")
	}
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM documents WHERE scope = ? AND key = ?`, scope, key).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get %q: %w", key, err)
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return true, fmt.Errorf("decode %q: %w", key, err)
	}
	return true, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, scope, key string, value any) error {
	if s.db == nil {
		return fmt.Errorf("store is not initialized")
	}
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO documents(scope, key, value, updated_at)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		scope, key, string(blob), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
