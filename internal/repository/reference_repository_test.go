package repository

import (
	"database/sql"
	"errors"
	"testing"
)

func TestReferenceCRUD(t *testing.T) {
	db := openTestDB(t)
	ctx := testCtx(t)
	repo := NewCategoryRepo(db)

	id, err := repo.Create(ctx, "  Laptops ")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	ref, err := repo.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ref.Name != "Laptops" {
		t.Errorf("name = %q, want trimmed %q", ref.Name, "Laptops")
	}

	if _, err := repo.Create(ctx, "Laptops"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate name: err = %v, want ErrConflict", err)
	}

	if err := repo.Update(ctx, id, "Computers"); err != nil {
		t.Fatalf("update: %v", err)
	}
	refs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(refs) != 1 || refs[0].Name != "Computers" {
		t.Errorf("list = %+v", refs)
	}

	if err := repo.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("get after delete: err = %v, want sql.ErrNoRows", err)
	}
}

func TestReferenceDeleteGuarded(t *testing.T) {
	db := openTestDB(t)
	ctx := testCtx(t)

	itemID := seedItem(t, db, "SN-001")

	var catID uint64
	if err := db.QueryRow("SELECT category_id FROM items WHERE id=?", itemID).Scan(&catID); err != nil {
		t.Fatalf("lookup: %v", err)
	}

	cats := NewCategoryRepo(db)
	if err := cats.Delete(ctx, catID); !errors.Is(err, ErrConflict) {
		t.Fatalf("delete referenced category: err = %v, want ErrConflict", err)
	}

	// Departments guard on users.
	depts := NewDepartmentRepo(db)
	deptID, err := depts.Create(ctx, "Field Ops")
	if err != nil {
		t.Fatalf("create department: %v", err)
	}
	uid := seedUser(t, db, "Alice", "alice@example.com", false)
	if _, err := db.Exec("UPDATE users SET department_id=? WHERE id=?", deptID, uid); err != nil {
		t.Fatalf("assign department: %v", err)
	}
	if err := depts.Delete(ctx, deptID); !errors.Is(err, ErrConflict) {
		t.Errorf("delete referenced department: err = %v, want ErrConflict", err)
	}
}
