package fleet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/opentelematics/fleetdeck/internal/logging"
)

// Cache errors.
var (
	ErrEmptyDataset    = errors.New("dataset has no rows")
	ErrInvalidDataset  = errors.New("invalid dataset name")
	ErrDatasetNotFound = errors.New("dataset not found")
)

// Cache is a local SQL store for fleet datasets. Each dataset becomes a
// table, replaced wholesale on refresh, with bookkeeping in _cache_metadata
// so the chat assistant can discover what is queryable.
type Cache struct {
	db     *sql.DB
	logger zerolog.Logger

	// mu serializes dataset replacement; readers go straight to the pool.
	mu sync.Mutex
}

// DatasetInfo describes one cached dataset.
type DatasetInfo struct {
	Name        string    `json:"name"`
	Rows        int       `json:"rows"`
	CachedAt    time.Time `json:"cachedAt"`
	Source      string    `json:"source"`
	Description string    `json:"description,omitempty"`
}

// QueryResult is the outcome of an ad-hoc SQL query.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// OpenCache opens or creates the cache at path. Use ":memory:" for an
// ephemeral cache.
func OpenCache(path string) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open fleet cache: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS _cache_metadata (
			dataset_name TEXT PRIMARY KEY,
			row_count INTEGER NOT NULL,
			cached_at TIMESTAMP NOT NULL,
			source TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache metadata: %w", err)
	}

	return &Cache{
		db:     db,
		logger: logging.Component("fleet-cache"),
	}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// CacheDataset stores rows as a table named after the dataset, replacing any
// previous version. Empty input is ErrEmptyDataset and leaves the prior
// version intact.
func (c *Cache) CacheDataset(ctx context.Context, name string, rows []map[string]any, source, description string) (*DatasetInfo, error) {
	table, err := sanitizeTableName(name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrEmptyDataset
	}
	if source == "" {
		source = "telematics"
	}

	columns := collectColumns(rows)

	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+table); err != nil {
		return nil, fmt.Errorf("drop dataset %s: %w", table, err)
	}

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = col.name + " " + col.sqlType
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return nil, fmt.Errorf("create dataset %s: %w", table, err)
	}

	placeholders := strings.TrimRight(strings.Repeat("?,", len(columns)), ",")
	names := make([]string, len(columns))
	for i, col := range columns {
		names[i] = col.name
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(names, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return nil, fmt.Errorf("prepare dataset insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		values := make([]any, len(columns))
		for i, col := range columns {
			values[i] = sqlValue(row[col.key])
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return nil, fmt.Errorf("insert into dataset %s: %w", table, err)
		}
	}

	cachedAt := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO _cache_metadata
		(dataset_name, row_count, cached_at, source, description)
		VALUES (?, ?, ?, ?, ?)
	`, table, len(rows), cachedAt, source, description); err != nil {
		return nil, fmt.Errorf("update cache metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit dataset %s: %w", table, err)
	}

	c.logger.Debug().Str("dataset", table).Int("rows", len(rows)).Msg("dataset cached")
	return &DatasetInfo{
		Name:        table,
		Rows:        len(rows),
		CachedAt:    cachedAt,
		Source:      source,
		Description: description,
	}, nil
}

// Query runs ad-hoc SQL over the cached datasets.
func (c *Cache) Query(ctx context.Context, query string) (*QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is required")
	}

	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cache query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("cache query columns: %w", err)
	}

	result := &QueryResult{Columns: columns, Rows: make([]map[string]any, 0)}
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("cache query scan: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache query rows: %w", err)
	}

	return result, nil
}

// ListDatasets returns metadata for every cached dataset, newest first.
func (c *Cache) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT dataset_name, row_count, cached_at, source, description
		FROM _cache_metadata
		ORDER BY cached_at DESC, dataset_name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	infos := make([]DatasetInfo, 0)
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(&info.Name, &info.Rows, &info.CachedAt, &info.Source, &info.Description); err != nil {
			return nil, fmt.Errorf("scan dataset metadata: %w", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list datasets rows: %w", err)
	}
	return infos, nil
}

// ExportCSV renders a cached dataset as CSV text.
func (c *Cache) ExportCSV(ctx context.Context, name string) (string, error) {
	table, err := sanitizeTableName(name)
	if err != nil {
		return "", err
	}

	result, err := c.Query(ctx, "SELECT * FROM "+table)
	if err != nil {
		if strings.Contains(err.Error(), "no such table") {
			return "", fmt.Errorf("%w: %s", ErrDatasetNotFound, table)
		}
		return "", err
	}

	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, ","))
	for _, row := range result.Rows {
		b.WriteByte('\n')
		for i, col := range result.Columns {
			if i > 0 {
				b.WriteByte(',')
			}
			if v := row[col]; v != nil {
				fmt.Fprint(&b, v)
			}
		}
	}
	return b.String(), nil
}

// RowsFromStructs converts a slice of JSON-taggable values into generic
// dataset rows.
func RowsFromStructs(v any) ([]map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode dataset rows: %w", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode dataset rows: %w", err)
	}
	return rows, nil
}

type column struct {
	key     string // original row key
	name    string // sanitized column name
	sqlType string
}

// collectColumns derives the table shape from the union of row keys, typing
// each column from its first non-nil value.
func collectColumns(rows []map[string]any) []column {
	keys := make(map[string]bool)
	for _, row := range rows {
		for k := range row {
			keys[k] = true
		}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	columns := make([]column, 0, len(sorted))
	for _, key := range sorted {
		name, err := sanitizeTableName(key)
		if err != nil {
			continue
		}
		columns = append(columns, column{key: key, name: name, sqlType: columnType(rows, key)})
	}
	return columns
}

func columnType(rows []map[string]any, key string) string {
	for _, row := range rows {
		switch row[key].(type) {
		case nil:
			continue
		case bool, int, int64:
			return "INTEGER"
		case float32, float64:
			return "REAL"
		default:
			return "TEXT"
		}
	}
	return "TEXT"
}

// sqlValue flattens a row value for storage. Nested objects and arrays are
// stored as JSON text.
func sqlValue(v any) any {
	switch value := v.(type) {
	case nil, string, int, int64, float32, float64, []byte, time.Time:
		return value
	case bool:
		if value {
			return 1
		}
		return 0
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprint(value)
		}
		return string(data)
	}
}

// sanitizeTableName maps a dataset or column name to a safe SQL identifier.
func sanitizeTableName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidDataset
	}

	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}

	clean := b.String()
	if clean[0] >= '0' && clean[0] <= '9' {
		clean = "t_" + clean
	}
	if strings.Trim(clean, "_") == "" {
		return "", ErrInvalidDataset
	}
	// The underscore prefix is reserved for bookkeeping tables such as
	// _cache_metadata; a dataset must not be able to shadow them.
	if clean[0] == '_' {
		return "", ErrInvalidDataset
	}
	return clean, nil
}
