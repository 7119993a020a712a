// Postgres feature-store sink.
//
// Rows land in feature_rows(trace, features), with the column names kept in
// feature_columns so that a consumer can map array positions back to counter
// names.  Ingestion is append-only; rerunning an extraction over the same
// corpus appends new rows and rewrites the column map.

package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type postgresSink struct {
	conn *pgx.Conn
}

func NewPostgresSink(databaseURI string) (RowSink, error) {
	conn, err := pgx.Connect(context.Background(), databaseURI)
	if err != nil {
		return nil, fmt.Errorf("Unable to connect to database: %w", err)
	}
	return &postgresSink{conn: conn}, nil
}

func (s *postgresSink) WriteHeader(schema []string) error {
	cx := context.Background()
	_, err := s.conn.Exec(cx,
		`CREATE TABLE IF NOT EXISTS feature_columns (
			 position integer PRIMARY KEY,
			 name text NOT NULL
		 )`)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(cx,
		`CREATE TABLE IF NOT EXISTS feature_rows (
			 trace text NOT NULL,
			 features float8[] NOT NULL
		 )`)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(cx, `DELETE FROM feature_columns`)
	if err != nil {
		return err
	}
	for position, name := range schema {
		_, err = s.conn.Exec(cx,
			`INSERT INTO feature_columns (position, name) VALUES ($1, $2)`,
			position, name)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresSink) WriteRow(trace string, row []float64) error {
	_, err := s.conn.Exec(context.Background(),
		`INSERT INTO feature_rows (trace, features) VALUES ($1, $2)`,
		trace, row)
	return err
}

func (s *postgresSink) Close() error {
	return s.conn.Close(context.Background())
}
