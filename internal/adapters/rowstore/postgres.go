package rowstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"ledgerbot/internal/adapters/config"
	"ledgerbot/pkg/errors"
)

// Compile-time check
var _ Store = (*PostgresStore)(nil)

// PostgresStore persists sheet rows in a single ledger_rows table, one
// TEXT column per sheet column, keyed by row number.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to PostgreSQL and ensures the ledger table exists
func NewPostgresStore(cfg config.PostgresConfig) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.Wrap(errors.ErrStoreUnavailable, err.Error())
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns / 2)
	db.SetConnMaxLifetime(time.Hour)

	store := &PostgresStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	cols := make([]string, 0, len(Columns))
	for _, c := range Columns {
		cols = append(cols, fmt.Sprintf("%q TEXT NOT NULL DEFAULT ''", c))
	}
	query := fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS ledger_rows (row_number INTEGER PRIMARY KEY, %s)`,
		strings.Join(cols, ", "),
	)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.Wrap(err, "ensure ledger schema")
	}
	return nil
}

// Append adds a data row and returns its assigned row number
func (s *PostgresStore) Append(ctx context.Context, row Row) (int, error) {
	names := make([]string, 0, len(Columns))
	placeholders := make([]string, 0, len(Columns))
	args := make([]interface{}, 0, len(Columns))
	for i, c := range Columns {
		names = append(names, fmt.Sprintf("%q", c))
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+1))
		args = append(args, row[c])
	}

	// Row numbers continue the sheet convention: the header occupies row 1
	query := fmt.Sprintf(
		`INSERT INTO ledger_rows (row_number, %s)
		 VALUES ((SELECT COALESCE(MAX(row_number), %d) + 1 FROM ledger_rows), %s)
		 RETURNING row_number`,
		strings.Join(names, ", "),
		HeaderRowNumber,
		strings.Join(placeholders, ", "),
	)

	var rowNumber int
	if err := s.db.QueryRowxContext(ctx, query, args...).Scan(&rowNumber); err != nil {
		return 0, errors.Wrap(err, "append ledger row")
	}
	return rowNumber, nil
}

// ReadAll returns every data row in sheet order
func (s *PostgresStore) ReadAll(ctx context.Context) ([]NumberedRow, error) {
	names := make([]string, 0, len(Columns))
	for _, c := range Columns {
		names = append(names, fmt.Sprintf("%q", c))
	}
	query := fmt.Sprintf(
		`SELECT row_number, %s FROM ledger_rows ORDER BY row_number`,
		strings.Join(names, ", "),
	)

	rows, err := s.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "read ledger rows")
	}
	defer rows.Close()

	var out []NumberedRow
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, errors.Wrap(err, "scan ledger row")
		}

		number, ok := values[0].(int64)
		if !ok {
			return nil, errors.Wrap(errors.ErrStoreConsistency, "row number is not an integer")
		}

		row := make(Row, len(Columns))
		for i, c := range Columns {
			row[c] = asString(values[i+1])
		}
		out = append(out, NumberedRow{Number: int(number), Values: row})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate ledger rows")
	}
	return out, nil
}

// Update sets one cell
func (s *PostgresStore) Update(ctx context.Context, rowNumber int, column, value string) error {
	if !ValidColumn(column) {
		return errors.Wrapf(errors.ErrUnknownColumn, "column %q", column)
	}

	query := fmt.Sprintf(`UPDATE ledger_rows SET %q = $1 WHERE row_number = $2`, column)
	res, err := s.db.ExecContext(ctx, query, value, rowNumber)
	if err != nil {
		return errors.Wrap(err, "update ledger cell")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "update ledger cell")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrRowOutOfRange, "row %d", rowNumber)
	}
	return nil
}

// Read returns one cell
func (s *PostgresStore) Read(ctx context.Context, rowNumber int, column string) (string, error) {
	if !ValidColumn(column) {
		return "", errors.Wrapf(errors.ErrUnknownColumn, "column %q", column)
	}

	query := fmt.Sprintf(`SELECT %q FROM ledger_rows WHERE row_number = $1`, column)
	var value string
	if err := s.db.GetContext(ctx, &value, query, rowNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", errors.Wrapf(errors.ErrRowOutOfRange, "row %d", rowNumber)
		}
		return "", errors.Wrap(err, "read ledger cell")
	}
	return value, nil
}

// Health checks database connectivity
func (s *PostgresStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
