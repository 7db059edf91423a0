package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/stockpilot/stockpilot/internal/backend"
	"github.com/stockpilot/stockpilot/internal/inventory"
)

// Store runs backend queries against the hosted Postgres Inventory table.
type Store struct {
	db    *sql.DB
	table string
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, table: inventory.TableName}
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping backend db: %w", err)
	}
	return nil
}

func (s *Store) Select(ctx context.Context, query backend.Query) ([]inventory.Row, error) {
	sqlText, args, err := backend.BuildSelect(s.table, query)
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("select inventory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("select inventory columns: %w", err)
	}

	out := make([]inventory.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan inventory row: %w", err)
		}
		row := make(inventory.Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inventory rows: %w", err)
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, filters []backend.Filter) (int64, error) {
	sqlText, args, err := backend.BuildCount(s.table, filters)
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, sqlText, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count inventory: %w", err)
	}
	return count, nil
}

// UpsertRecords writes records in one transaction, replacing rows that share an item_id.
func (s *Store) UpsertRecords(ctx context.Context, records []inventory.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	statement := upsertSQL(s.table)
	for _, record := range records {
		values, err := record.Values()
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, statement, values...); err != nil {
			return 0, fmt.Errorf("upsert item %q: %w", record.ItemID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}
	return len(records), nil
}

func upsertSQL(table string) string {
	columns := make([]string, 0, len(inventory.Schema))
	placeholders := make([]string, 0, len(inventory.Schema))
	updates := make([]string, 0, len(inventory.Schema))
	for i, column := range inventory.Schema {
		quoted := backend.QuoteIdent(column.Name)
		columns = append(columns, quoted)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		if column.Name != "item_id" {
			updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoted, quoted))
		}
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		backend.QuoteIdent(table),
		strings.Join(columns, ", "),
		strings.Join(placeholders, ", "),
		backend.QuoteIdent("item_id"),
		strings.Join(updates, ", "),
	)
}

func normalizeValue(value any) any {
	switch typed := value.(type) {
	case []byte:
		return string(typed)
	default:
		return typed
	}
}
