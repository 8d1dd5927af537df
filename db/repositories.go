package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PgSlot keeps slots as rows of a postgres table.
type PgSlot struct {
	conn PgxIface
}

func NewPgSlot(conn PgxIface) *PgSlot {
	return &PgSlot{conn: conn}
}

func (s *PgSlot) Migrate(ctx context.Context) error {
	sql := `create table if not exists slot (
		key   text primary key,
		value text not null
	)`

	if _, err := s.conn.Exec(ctx, sql); err != nil {
		return fmt.Errorf("create slot table: %w", err)
	}

	return nil
}

func (s *PgSlot) Get(ctx context.Context, key string) (string, bool, error) {
	sql := "select value from slot where key = $1"

	var value string

	err := s.conn.QueryRow(ctx, sql, key).Scan(&value)

	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get slot %q: %w", key, err)
	}

	return value, true, nil
}

func (s *PgSlot) Set(ctx context.Context, key, value string) error {
	sql := `insert into slot (key, value) values ($1, $2)
		on conflict (key) do update set value = excluded.value`

	if _, err := s.conn.Exec(ctx, sql, key, value); err != nil {
		return fmt.Errorf("set slot %q: %w", key, err)
	}

	return nil
}

func (s *PgSlot) Close() error {
	s.conn.Close()
	return nil
}
