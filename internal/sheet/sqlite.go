package sheet

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// DBConfig opens either a local sqlite file or, when Url is set, a remote
// libsql database.
type DBConfig struct {
	File      string `json:"file"`
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`
}

func (config DBConfig) OpenDB() (*sql.DB, error) {
	if config.Url != "" {
		dsn := config.Url
		if config.AuthToken != "" {
			dsn = fmt.Sprintf("%s?authToken=%s", config.Url, config.AuthToken)
		}
		db, err := sql.Open("libsql", dsn)
		if err != nil {
			return nil, err
		}
		_, err = db.Exec(Schema)
		if err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}

	if config.File == "" {
		return nil, fmt.Errorf("neither a file nor a url was specified")
	}
	return OpenSqlite(config.File)
}

// OpenSqlite opens (creating it if needed) a sqlite database and applies the schema.
func OpenSqlite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		_, statErr := os.Stat(path)
		if os.IsNotExist(statErr) {
			f, err := os.Create(path)
			if err != nil {
				return nil, err
			}
			f.Close()
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// a single connection keeps :memory: databases alive across queries
	// and serializes writers on a file
	db.SetMaxOpenConns(1)
	if path != ":memory:" {
		_, err = db.Exec("PRAGMA journal_mode=WAL")
		if err != nil {
			db.Close()
			return nil, err
		}
	}
	_, err = db.Exec(Schema)
	if err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// SqlSheet stores a sheet in a sql table, one row per sheet row.
type SqlSheet struct {
	db   *sql.DB
	name string
}

func NewSqlSheet(db *sql.DB, name string) SqlSheet {
	if name == "" {
		name = "results"
	}
	return SqlSheet{db: db, name: name}
}

func (s SqlSheet) Rows(ctx context.Context) ([][]string, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"select cells from sheet_row where sheet = ? order by idx asc",
		s.name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		var encoded string
		err = rows.Scan(&encoded)
		if err != nil {
			return nil, err
		}
		var cells []string
		err = json.Unmarshal([]byte(encoded), &cells)
		if err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}

func (s SqlSheet) Header(ctx context.Context) ([]string, error) {
	var encoded string
	err := s.db.QueryRowContext(
		ctx,
		"select cells from sheet_row where sheet = ? order by idx asc limit 1",
		s.name,
	).Scan(&encoded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cells []string
	err = json.Unmarshal([]byte(encoded), &cells)
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return cells, nil
}

func (s SqlSheet) Column(ctx context.Context, idx int) ([]string, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return nil, err
	}
	return column(rows, idx), nil
}

func (s SqlSheet) write(ctx context.Context, rows [][]string, start func(tx *sql.Tx) (int64, error)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	idx, err := start(tx)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(
		ctx,
		"insert or replace into sheet_row (sheet, idx, cells) values (?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if row == nil {
			row = []string{}
		}
		encoded, err := json.Marshal(row)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, s.name, idx, string(encoded))
		if err != nil {
			return err
		}
		idx++
	}

	return tx.Commit()
}

func (s SqlSheet) Put(ctx context.Context, rows [][]string) error {
	return s.write(ctx, rows, func(*sql.Tx) (int64, error) {
		return 0, nil
	})
}

func (s SqlSheet) Append(ctx context.Context, rows [][]string) error {
	return s.write(ctx, rows, func(tx *sql.Tx) (int64, error) {
		var next int64
		err := tx.QueryRowContext(
			ctx,
			"select coalesce(max(idx) + 1, 0) from sheet_row where sheet = ?",
			s.name,
		).Scan(&next)
		return next, err
	})
}
