package dbopen_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/redveil/redveil/dbopen"
)

func TestOpenPragmas(t *testing.T) {
	db := dbopen.OpenMemory(t)

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatal(err)
	}
	// :memory: may report "memory" instead of "wal" for journal_mode,
	// but the PRAGMA was still executed successfully.
	if journalMode != "wal" && journalMode != "memory" {
		t.Fatalf("journal_mode = %q, want wal or memory", journalMode)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatal(err)
	}
	if fk != 1 {
		t.Fatalf("foreign_keys = %d, want 1", fk)
	}
}

func TestWithSchema(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(
		`CREATE TABLE things (id TEXT PRIMARY KEY, n INTEGER NOT NULL)`))

	if _, err := db.Exec(`INSERT INTO things (id, n) VALUES ('a', 1)`); err != nil {
		t.Fatalf("insert into schema table: %v", err)
	}
}

func TestRunTx(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(
		`CREATE TABLE things (id TEXT PRIMARY KEY)`))

	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO things (id) VALUES ('a')`)
		return err
	})
	if err != nil {
		t.Fatalf("RunTx: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM things`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("rows after commit: got %d, want 1", n)
	}
}

func TestRunTxRollback(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(
		`CREATE TABLE things (id TEXT PRIMARY KEY)`))

	boom := errors.New("boom")
	err := dbopen.RunTx(context.Background(), db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO things (id) VALUES ('a')`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("RunTx error: got %v, want boom", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM things`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("rows after rollback: got %d, want 0", n)
	}
}

func TestExec(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(`CREATE TABLE things (id TEXT PRIMARY KEY)`))
	ctx := context.Background()

	res, err := dbopen.Exec(ctx, db, `INSERT INTO things (id) VALUES (?)`, "a")
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Errorf("rows affected: got %d, want 1", n)
	}

	if _, err := dbopen.Exec(ctx, db, `INSERT INTO nope (id) VALUES (?)`, "a"); err == nil {
		t.Error("Exec on missing table: got nil error")
	}
}

func TestIsBusy(t *testing.T) {
	if dbopen.IsBusy(nil) {
		t.Error("IsBusy(nil): got true")
	}
	if !dbopen.IsBusy(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("IsBusy(SQLITE_BUSY): got false")
	}
	if dbopen.IsBusy(errors.New("syntax error")) {
		t.Error("IsBusy(syntax error): got true")
	}
}
