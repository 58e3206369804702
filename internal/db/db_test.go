package db

import (
	"path/filepath"
	"testing"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func TestOpen_CreatesDatabase(t *testing.T) {
	database := openTest(t)
	if err := database.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func TestOpen_CreatesParentDirs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")
	database, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer database.Close()
}

func TestOpen_TablesExist(t *testing.T) {
	database := openTest(t)

	tables := []string{"kv_store", "content_index", "schema_migrations"}
	for _, table := range tables {
		var count int
		err := database.Conn().QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("query table %q: %v", table, err)
		}
		if count != 1 {
			t.Errorf("table %q not found", table)
		}
	}
}

func TestOpen_MigrationsRecorded(t *testing.T) {
	database := openTest(t)

	var count int
	if err := database.X().Get(&count, `SELECT COUNT(*) FROM schema_migrations`); err != nil {
		t.Fatalf("query migrations: %v", err)
	}
	if count != len(migrations) {
		t.Errorf("expected %d migrations recorded, got %d", len(migrations), count)
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db1, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := db1.KV().Set("k", []byte("v")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	db1.Close()

	db2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer db2.Close()

	got, ok, err := db2.KV().Get("k")
	if err != nil || !ok || string(got) != "v" {
		t.Errorf("value lost across re-open: %q ok=%v err=%v", got, ok, err)
	}
}

func TestOpen_VectorTables(t *testing.T) {
	database := openTest(t)

	var count int
	database.Conn().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name='vec_content'`).Scan(&count)
	// Just log; the vec extension may be unavailable.
	t.Logf("vec_content exists: %v (available=%v)", count > 0, database.VectorsAvailable())
}

func TestKV_GetMissing(t *testing.T) {
	database := openTest(t)

	got, ok, err := database.KV().Get("missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || got != nil {
		t.Errorf("expected absent key, got %q ok=%v", got, ok)
	}
}

func TestKV_SetOverwrites(t *testing.T) {
	kv := openTest(t).KV()

	if err := kv.Set("session", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set("session", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := kv.Get("session")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if string(got) != `{"a":2}` {
		t.Errorf("got %q", got)
	}
}

func TestKV_Delete(t *testing.T) {
	kv := openTest(t).KV()

	_ = kv.Set("k", []byte("v"))
	if err := kv.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := kv.Get("k"); ok {
		t.Error("key still present after Delete")
	}
	if err := kv.Delete("never-set"); err != nil {
		t.Errorf("Delete of absent key: %v", err)
	}
}

func TestClose(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := database.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := database.Ping(); err == nil {
		t.Error("expected Ping to fail after Close")
	}
}
