package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// The repositories only use portable SQL, so the tests run them against
// an in-memory SQLite database instead of a MySQL server.
const testSchema = `
CREATE TABLE users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	phone         TEXT NOT NULL DEFAULT '',
	county        TEXT NOT NULL DEFAULT '',
	department_id INTEGER,
	password_hash TEXT NOT NULL,
	is_admin      BOOLEAN NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);
CREATE TABLE refresh_tokens (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL,
	token_hash TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	revoked_at TEXT,
	created_at TEXT NOT NULL
);
CREATE TABLE categories (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);
CREATE TABLE counties (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);
CREATE TABLE item_models (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);
CREATE TABLE departments (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);
CREATE TABLE items (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	serial_number    TEXT NOT NULL UNIQUE,
	category_id      INTEGER NOT NULL,
	county_id        INTEGER NOT NULL,
	model_id         INTEGER NOT NULL,
	is_under_repair  BOOLEAN NOT NULL DEFAULT 0,
	last_repair_date TEXT,
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
CREATE TABLE allocations (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id        INTEGER NOT NULL,
	item_id        INTEGER NOT NULL,
	status         TEXT NOT NULL,
	message        TEXT,
	date_allocated TEXT NOT NULL,
	date_returned  TEXT
);
CREATE TABLE return_requests (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	allocation_id INTEGER NOT NULL,
	requested_by  INTEGER NOT NULL,
	status        TEXT NOT NULL,
	message       TEXT,
	admin_notes   TEXT,
	requested_at  TEXT NOT NULL,
	processed_at  TEXT,
	processed_by  INTEGER
);
CREATE TABLE repair_requests (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	allocation_id    INTEGER NOT NULL,
	item_id          INTEGER NOT NULL,
	requested_by     INTEGER NOT NULL,
	status           TEXT NOT NULL,
	issue            TEXT NOT NULL,
	additional_notes TEXT,
	admin_notes      TEXT,
	requested_at     TEXT NOT NULL,
	updated_at       TEXT NOT NULL,
	completed_at     TEXT,
	completed_by     INTEGER
);
`

// openTestDB returns a fresh in-memory database with the full schema.
// A single connection keeps every statement on the same :memory: store.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// seedUser inserts a member directly, skipping bcrypt to keep tests
// fast. The stored hash is not a valid bcrypt digest.
func seedUser(t *testing.T, db *sql.DB, name, email string, isAdmin bool) uint64 {
	t.Helper()
	now := nowStamp()
	res, err := db.Exec(
		`INSERT INTO users (name, email, phone, county, password_hash, is_admin, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?)`,
		name, email, "0700000000", "Nairobi", "x", isAdmin, now, now)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// seedRefs inserts one row into each of the three item lookup tables.
func seedRefs(t *testing.T, db *sql.DB) (catID, countyID, modelID uint64) {
	t.Helper()
	now := nowStamp()
	for _, ins := range []struct {
		table string
		name  string
		out   *uint64
	}{
		{"categories", "Laptops", &catID},
		{"counties", "Nairobi", &countyID},
		{"item_models", "ThinkPad T14", &modelID},
	} {
		res, err := db.Exec("INSERT INTO "+ins.table+" (name, created_at) VALUES (?,?)", ins.name, now)
		if err != nil {
			t.Fatalf("seed %s: %v", ins.table, err)
		}
		id, _ := res.LastInsertId()
		*ins.out = uint64(id)
	}
	return catID, countyID, modelID
}

// seedItem inserts an item bound to freshly seeded references.
func seedItem(t *testing.T, db *sql.DB, serial string) uint64 {
	t.Helper()
	var catID, countyID, modelID uint64
	row := db.QueryRow("SELECT id FROM categories LIMIT 1")
	if err := row.Scan(&catID); err != nil {
		catID, countyID, modelID = seedRefs(t, db)
	} else {
		if err := db.QueryRow("SELECT id FROM counties LIMIT 1").Scan(&countyID); err != nil {
			t.Fatalf("seed item: %v", err)
		}
		if err := db.QueryRow("SELECT id FROM item_models LIMIT 1").Scan(&modelID); err != nil {
			t.Fatalf("seed item: %v", err)
		}
	}
	now := nowStamp()
	res, err := db.Exec(
		`INSERT INTO items (name, serial_number, category_id, county_id, model_id, is_under_repair, created_at, updated_at)
		 VALUES (?,?,?,?,?,0,?,?)`,
		"Laptop "+serial, serial, catID, countyID, modelID, now, now)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

// seedAllocation creates an active allocation through the repository so
// invariants hold.
func seedAllocation(t *testing.T, db *sql.DB, userID, itemID uint64) uint64 {
	t.Helper()
	id, err := NewAllocationRepo(db).Create(testCtx(t), userID, itemID, nil, false)
	if err != nil {
		t.Fatalf("seed allocation: %v", err)
	}
	return id
}
