package llmcall

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat is fixed-width so stored timestamps sort lexically.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store provides access to LLM call records in SQLite.
type Store struct {
	db *sql.DB
}

// QueryFilter specifies filters for listing LLM calls.
type QueryFilter struct {
	PromptKey string
	Model     string
	ErrorKind string
	After     *time.Time
	Before    *time.Time
	Success   *bool
	Limit     int
	Offset    int
}

// Open opens (creating if needed) the call database at path. Use ":memory:"
// for an in-process store.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS llm_calls (
    id TEXT PRIMARY KEY,
    request_id TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    latency_ms INTEGER NOT NULL,
    attempts INTEGER NOT NULL,
    prompt_key TEXT,
    prompt_hash TEXT,
    provider TEXT NOT NULL,
    model TEXT NOT NULL,
    input_tokens INTEGER NOT NULL DEFAULT 0,
    output_tokens INTEGER NOT NULL DEFAULT 0,
    stop_reason TEXT,
    output TEXT,
    success INTEGER NOT NULL,
    error_kind TEXT,
    error TEXT
);
CREATE INDEX IF NOT EXISTS idx_llm_calls_timestamp ON llm_calls(timestamp);
CREATE INDEX IF NOT EXISTS idx_llm_calls_prompt_key ON llm_calls(prompt_key);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert writes a call record.
func (s *Store) Insert(ctx context.Context, c *Call) error {
	if c == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO llm_calls(id, request_id, timestamp, latency_ms, attempts, prompt_key, prompt_hash,
		 provider, model, input_tokens, output_tokens, stop_reason, output, success, error_kind, error)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.RequestID, c.Timestamp.UTC().Format(timeFormat), c.LatencyMs, c.Attempts,
		c.PromptKey, c.PromptHash, c.Provider, c.Model, c.InputTokens, c.OutputTokens,
		c.StopReason, string(c.Output), c.Success, c.ErrorKind, c.Error)
	if err != nil {
		return fmt.Errorf("insert llm call: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, request_id, timestamp, latency_ms, attempts, prompt_key, prompt_hash,
	provider, model, input_tokens, output_tokens, stop_reason, output, success, error_kind, error
	FROM llm_calls`

// Get retrieves a single LLM call by ID. It returns nil, nil when absent.
func (s *Store) Get(ctx context.Context, id string) (*Call, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	c, err := scanCall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// List retrieves LLM calls matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter QueryFilter) ([]Call, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.PromptKey != "" {
		conditions = append(conditions, "prompt_key = ?")
		args = append(args, filter.PromptKey)
	}
	if filter.Model != "" {
		conditions = append(conditions, "model = ?")
		args = append(args, filter.Model)
	}
	if filter.ErrorKind != "" {
		conditions = append(conditions, "error_kind = ?")
		args = append(args, filter.ErrorKind)
	}
	if filter.Success != nil {
		conditions = append(conditions, "success = ?")
		args = append(args, *filter.Success)
	}
	if filter.After != nil {
		conditions = append(conditions, "timestamp > ?")
		args = append(args, filter.After.UTC().Format(timeFormat))
	}
	if filter.Before != nil {
		conditions = append(conditions, "timestamp < ?")
		args = append(args, filter.Before.UTC().Format(timeFormat))
	}

	query := selectColumns
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm calls: %w", err)
	}
	defer rows.Close()

	calls := make([]Call, 0)
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, *c)
	}
	return calls, rows.Err()
}

// CountByPromptKey returns call counts grouped by prompt key.
func (s *Store) CountByPromptKey(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(prompt_key, ''), COUNT(*) FROM llm_calls GROUP BY prompt_key`)
	if err != nil {
		return nil, fmt.Errorf("count llm calls: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCall(row scanner) (*Call, error) {
	var (
		c                                 Call
		ts                                string
		promptKey, promptHash, stopReason sql.NullString
		output, errorKind, errMsg         sql.NullString
	)
	if err := row.Scan(&c.ID, &c.RequestID, &ts, &c.LatencyMs, &c.Attempts, &promptKey, &promptHash,
		&c.Provider, &c.Model, &c.InputTokens, &c.OutputTokens, &stopReason, &output, &c.Success,
		&errorKind, &errMsg); err != nil {
		return nil, err
	}
	if t, err := time.Parse(timeFormat, ts); err == nil {
		c.Timestamp = t
	}
	c.PromptKey = promptKey.String
	c.PromptHash = promptHash.String
	c.StopReason = stopReason.String
	if output.String != "" {
		c.Output = []byte(output.String)
	}
	c.ErrorKind = errorKind.String
	c.Error = errMsg.String
	return &c, nil
}
