package handler_test

import (
	"database/sql"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/njoroge/inventory-allocation/internal/config"
	"github.com/njoroge/inventory-allocation/internal/handler"
	"github.com/njoroge/inventory-allocation/internal/repository"
	"github.com/njoroge/inventory-allocation/internal/router"
	"github.com/njoroge/inventory-allocation/internal/utils"
)

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
CREATE TABLE categories   (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, created_at TEXT NOT NULL);
CREATE TABLE counties     (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, created_at TEXT NOT NULL);
CREATE TABLE item_models  (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, created_at TEXT NOT NULL);
CREATE TABLE departments  (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL UNIQUE, created_at TEXT NOT NULL);
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
	requested_at  TEXT,
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

// testEnv is a full HTTP stack over an in-memory database: real
// repositories, handlers, middleware and routes, no Redis or broker.
type testEnv struct {
	e   *echo.Echo
	db  *sql.DB
	cfg config.Config
}

func newTestEnv(t *testing.T, opts ...func(*config.Config)) *testEnv {
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

	cfg := config.Config{
		Env:            "test",
		JWTSecret:      "handler-test-secret",
		AccessTTLMin:   5,
		RefreshTTLDays: 1,
		BcryptCost:     bcrypt.MinCost,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	items := repository.NewItemRepo(db)
	categories := repository.NewCategoryRepo(db)
	counties := repository.NewCountyRepo(db)
	models := repository.NewItemModelRepo(db)
	departments := repository.NewDepartmentRepo(db)
	allocations := repository.NewAllocationRepo(db)
	returns := repository.NewReturnRequestRepo(db)
	repairs := repository.NewRepairRequestRepo(db)

	authH := handler.NewAuthHandler(cfg, users, tokens)
	userH := handler.NewUserHandler(cfg, users)
	itemH := handler.NewItemHandler(items)
	categoryH := handler.NewReferenceHandler(categories, "category")
	countyH := handler.NewReferenceHandler(counties, "county")
	modelH := handler.NewReferenceHandler(models, "model")
	departmentH := handler.NewReferenceHandler(departments, "department")
	allocationH := handler.NewAllocationHandler(cfg, allocations)
	returnH := handler.NewReturnRequestHandler(returns)
	repairH := handler.NewRepairRequestHandler(repairs)

	e := echo.New()
	router.RegisterRoutes(e, router.PublicReferences{
		Categories: categoryH,
		Counties:   countyH,
		Models:     modelH,
	}, config.CacheConfig{}, nil)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterMember(e, router.MemberHandlers{
		Departments:    departmentH,
		Items:          itemH,
		Allocations:    allocationH,
		ReturnRequests: returnH,
		RepairRequests: repairH,
	}, cfg.JWTSecret)
	router.RegisterAdmin(e, router.AdminHandlers{
		Users:          userH,
		Items:          itemH,
		Categories:     categoryH,
		Counties:       countyH,
		Models:         modelH,
		Departments:    departmentH,
		Allocations:    allocationH,
		ReturnRequests: returnH,
		RepairRequests: repairH,
	}, cfg.JWTSecret)

	return &testEnv{e: e, db: db, cfg: cfg}
}

// seedUser inserts a member directly and mints an access token.
func (env *testEnv) seedUser(t *testing.T, name, email string, isAdmin bool) (uint64, string) {
	t.Helper()
	res, err := env.db.Exec(
		`INSERT INTO users (name, email, phone, county, password_hash, is_admin, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,datetime('now'),datetime('now'))`,
		name, email, "0700000000", "Nairobi", "x", isAdmin)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	id, _ := res.LastInsertId()
	at, err := utils.NewAccessToken(env.cfg.JWTSecret, uint64(id), isAdmin, env.cfg.AccessTTLMin)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return uint64(id), at.Token
}

func (env *testEnv) seedItem(t *testing.T, serial string) uint64 {
	t.Helper()
	for _, table := range []string{"categories", "counties", "item_models"} {
		if _, err := env.db.Exec(
			"INSERT OR IGNORE INTO "+table+" (name, created_at) VALUES (?, datetime('now'))",
			"ref-"+table); err != nil {
			t.Fatalf("seed %s: %v", table, err)
		}
	}
	res, err := env.db.Exec(
		`INSERT INTO items (name, serial_number, category_id, county_id, model_id, is_under_repair, created_at, updated_at)
		 SELECT ?, ?, c.id, co.id, m.id, 0, datetime('now'), datetime('now')
		 FROM categories c, counties co, item_models m LIMIT 1`,
		"Laptop "+serial, serial)
	if err != nil {
		t.Fatalf("seed item: %v", err)
	}
	id, _ := res.LastInsertId()
	return uint64(id)
}

func (env *testEnv) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}
