package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/njoroge/inventory-allocation/internal/model"
)

// refGuard names a table/column pair that blocks deletion of a
// reference row while any record still points at it.
type refGuard struct {
	table  string
	column string
}

// ReferenceRepo provides CRUD for one of the flat lookup tables
// (categories, counties, item_models, departments). All four share the
// same shape, so a single repository is parameterized by table name and
// by the foreign keys that guard deletion.
type ReferenceRepo struct {
	DB     *sql.DB
	table  string
	guards []refGuard
}

func NewCategoryRepo(db *sql.DB) *ReferenceRepo {
	return &ReferenceRepo{DB: db, table: "categories", guards: []refGuard{{"items", "category_id"}}}
}

func NewCountyRepo(db *sql.DB) *ReferenceRepo {
	return &ReferenceRepo{DB: db, table: "counties", guards: []refGuard{{"items", "county_id"}}}
}

func NewItemModelRepo(db *sql.DB) *ReferenceRepo {
	return &ReferenceRepo{DB: db, table: "item_models", guards: []refGuard{{"items", "model_id"}}}
}

func NewDepartmentRepo(db *sql.DB) *ReferenceRepo {
	return &ReferenceRepo{DB: db, table: "departments", guards: []refGuard{{"users", "department_id"}}}
}

// List returns every row ordered by name. The lookup tables are small
// enough that pagination would be noise.
func (r *ReferenceRepo) List(ctx context.Context) ([]model.Reference, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, name, created_at FROM "+r.table+" ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reference{}
	for rows.Next() {
		var (
			ref     model.Reference
			created string
		)
		if err := rows.Scan(&ref.ID, &ref.Name, &created); err != nil {
			return nil, err
		}
		ref.CreatedAt = parseStamp(created)
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Get fetches one row by id.
func (r *ReferenceRepo) Get(ctx context.Context, id uint64) (model.Reference, error) {
	var (
		ref     model.Reference
		created string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM "+r.table+" WHERE id=? LIMIT 1", id).
		Scan(&ref.ID, &ref.Name, &created)
	if err != nil {
		return model.Reference{}, err
	}
	ref.CreatedAt = parseStamp(created)
	return ref, nil
}

// Create inserts a named row. Names are unique per table.
func (r *ReferenceRepo) Create(ctx context.Context, name string) (uint64, error) {
	name = strings.TrimSpace(name)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO "+r.table+" (name, created_at) VALUES (?,?)", name, nowStamp())
	if err != nil {
		if isDuplicateErr(err) {
			return 0, ErrConflict
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// Update renames a row.
func (r *ReferenceRepo) Update(ctx context.Context, id uint64, name string) error {
	ok, err := rowExists(ctx, r.DB, r.table, id)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE "+r.table+" SET name=? WHERE id=?", strings.TrimSpace(name), id)
	if isDuplicateErr(err) {
		return ErrConflict
	}
	return err
}

// Delete removes a row unless something still references it.
func (r *ReferenceRepo) Delete(ctx context.Context, id uint64) error {
	ok, err := rowExists(ctx, r.DB, r.table, id)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	for _, g := range r.guards {
		var n int64
		err := r.DB.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM "+g.table+" WHERE "+g.column+"=?", id).Scan(&n)
		if err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
	}
	_, err = r.DB.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE id=?", id)
	return err
}
