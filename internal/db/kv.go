package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// KV is a durable string-keyed blob store over the kv_store table.
type KV struct {
	conn *sqlx.DB
}

// KV returns the key-value view of the database.
func (d *DB) KV() *KV {
	return &KV{conn: d.conn}
}

// Get returns the value stored under key. ok is false when the key is absent.
func (k *KV) Get(key string) (value []byte, ok bool, err error) {
	var s string
	err = k.conn.Get(&s, `SELECT value FROM kv_store WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv: get %q: %w", key, err)
	}
	return []byte(s), true, nil
}

// Set stores value under key, replacing any previous value.
func (k *KV) Set(key string, value []byte) error {
	_, err := k.conn.Exec(
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, string(value),
	)
	if err != nil {
		return fmt.Errorf("kv: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (k *KV) Delete(key string) error {
	if _, err := k.conn.Exec(`DELETE FROM kv_store WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv: delete %q: %w", key, err)
	}
	return nil
}
