package repository

import (
	"errors"
	"testing"

	"github.com/njoroge/inventory-allocation/internal/model"
)

func TestRepairRequestCreateFlagsItem(t *testing.T) {
	db := openTestDB(t)
	ctx := testCtx(t)
	repo := NewRepairRequestRepo(db)

	alice := seedUser(t, db, "Alice", "alice@example.com", false)
	itemID := seedItem(t, db, "SN-001")
	allocID := seedAllocation(t, db, alice, itemID)

	id, err := repo.Create(ctx, allocID, alice, "screen cracked", nil, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	item, err := NewItemRepo(db).GetByID(ctx, itemID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !item.IsUnderRepair || item.LastRepairDate == nil {
		t.Errorf("item after request: under_repair=%t last_repair_date=%v", item.IsUnderRepair, item.LastRepairDate)
	}

	row, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if row.Status != model.RepairStatusPending || row.Issue != "screen cracked" {
		t.Errorf("request = %+v", row)
	}

	// One open request per allocation.
	if _, err := repo.Create(ctx, allocID, alice, "still broken", nil, false); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate open request: err = %v, want ErrConflict", err)
	}
}

func TestRepairRequestCreateRules(t *testing.T) {
	db := openTestDB(t)
	ctx := testCtx(t)
	repo := NewRepairRequestRepo(db)

	alice := seedUser(t, db, "Alice", "alice@example.com", false)
	bob := seedUser(t, db, "Bob", "bob@example.com", false)
	itemID := seedItem(t, db, "SN-001")
	allocID := seedAllocation(t, db, alice, itemID)

	if _, err := repo.Create(ctx, 999, alice, "x", nil, false); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("unknown allocation: err = %v, want ErrInvalidReference", err)
	}
	if _, err := repo.Create(ctx, allocID, bob, "x", nil, false); !errors.Is(err, ErrForbidden) {
		t.Errorf("foreign allocation: err = %v, want ErrForbidden", err)
	}

	st := model.AllocationStatusReturned
	if err := NewAllocationRepo(db).Update(ctx, allocID, AllocationUpdate{Status: &st}, false); err != nil {
		t.Fatalf("return allocation: %v", err)
	}
	if _, err := repo.Create(ctx, allocID, alice, "x", nil, false); !errors.Is(err, ErrInvalidReference) {
		t.Errorf("returned allocation: err = %v, want ErrInvalidReference", err)
	}
}

func TestRepairRequestTransitionMatrix(t *testing.T) {
	db := openTestDB(t)
	ctx := testCtx(t)
	repo := NewRepairRequestRepo(db)

	alice := seedUser(t, db, "Alice", "alice@example.com", false)
	admin := seedUser(t, db, "Root", "root@example.com", true)
	itemID := seedItem(t, db, "SN-001")
	allocID := seedAllocation(t, db, alice, itemID)

	id, err := repo.Create(ctx, allocID, alice, "fan noise", nil, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// pending cannot jump straight to completed.
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusCompleted, nil, true, admin); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("pending→completed: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusInProgress, nil, false, admin); err != nil {
		t.Fatalf("pending→in_progress: %v", err)
	}
	// in_progress cannot go back to pending.
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusPending, nil, false, admin); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("in_progress→pending: err = %v, want ErrInvalidTransition", err)
	}
	out, err := repo.UpdateStatus(ctx, id, model.RepairStatusCompleted, nil, true, admin)
	if err != nil {
		t.Fatalf("in_progress→completed: %v", err)
	}
	if out.Status != model.RepairStatusCompleted || !out.ItemFixed {
		t.Errorf("processed = %+v", out)
	}
	// completed is terminal.
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusRejected, nil, false, admin); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("completed→rejected: err = %v, want ErrInvalidTransition", err)
	}
}

func TestRepairRequestCompletionItemSideEffects(t *testing.T) {
	db := openTestDB(t)
	ctx := testCtx(t)
	repo := NewRepairRequestRepo(db)
	items := NewItemRepo(db)

	alice := seedUser(t, db, "Alice", "alice@example.com", false)
	admin := seedUser(t, db, "Root", "root@example.com", true)

	// Completed with the item fixed clears the repair flag.
	fixedItem := seedItem(t, db, "SN-001")
	fixedAlloc := seedAllocation(t, db, alice, fixedItem)
	id, err := repo.Create(ctx, fixedAlloc, alice, "battery", nil, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusInProgress, nil, false, admin); err != nil {
		t.Fatalf("in_progress: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusCompleted, nil, true, admin); err != nil {
		t.Fatalf("complete: %v", err)
	}
	item, err := items.GetByID(ctx, fixedItem)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.IsUnderRepair {
		t.Errorf("item still under repair after fixed completion")
	}
	if item.LastRepairDate == nil {
		t.Errorf("last_repair_date not stamped")
	}
	row, err := repo.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get request: %v", err)
	}
	if row.CompletedAt == nil || row.CompletedByID == nil || *row.CompletedByID != admin {
		t.Errorf("completion stamps missing: %+v", row)
	}

	// Completed without a fix keeps the flag set.
	brokenItem := seedItem(t, db, "SN-002")
	brokenAlloc := seedAllocation(t, db, alice, brokenItem)
	id, err = repo.Create(ctx, brokenAlloc, alice, "water damage", nil, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusInProgress, nil, false, admin); err != nil {
		t.Fatalf("in_progress: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusCompleted, nil, false, admin); err != nil {
		t.Fatalf("complete: %v", err)
	}
	item, err = items.GetByID(ctx, brokenItem)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if !item.IsUnderRepair {
		t.Errorf("unfixed completion cleared the repair flag")
	}

	// Rejection always clears the flag.
	rejItem := seedItem(t, db, "SN-003")
	rejAlloc := seedAllocation(t, db, alice, rejItem)
	id, err = repo.Create(ctx, rejAlloc, alice, "cosmetic scratch", nil, false)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.UpdateStatus(ctx, id, model.RepairStatusRejected, nil, false, admin); err != nil {
		t.Fatalf("reject: %v", err)
	}
	item, err = items.GetByID(ctx, rejItem)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if item.IsUnderRepair {
		t.Errorf("rejection left the repair flag set")
	}
}

func TestRepairRequestListSorting(t *testing.T) {
	db := openTestDB(t)
	ctx := testCtx(t)
	repo := NewRepairRequestRepo(db)

	alice := seedUser(t, db, "Alice", "alice@example.com", false)
	issues := []string{"b-issue", "a-issue", "c-issue"}
	for i, issue := range issues {
		itemID := seedItem(t, db, "SN-30"+string(rune('0'+i)))
		allocID := seedAllocation(t, db, alice, itemID)
		if _, err := repo.Create(ctx, allocID, alice, issue, nil, false); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	rows, total, err := repo.List(ctx, RepairRequestQuery{SortBy: "issue", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 || len(rows) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(rows))
	}
	if rows[0].Issue != "a-issue" || rows[2].Issue != "c-issue" {
		t.Errorf("ascending issue sort got %q..%q", rows[0].Issue, rows[2].Issue)
	}

	rows, _, err = repo.List(ctx, RepairRequestQuery{SortBy: "issue", SortDesc: true, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("list desc: %v", err)
	}
	if rows[0].Issue != "c-issue" {
		t.Errorf("descending issue sort got %q first", rows[0].Issue)
	}

	// Unknown sort column falls back instead of erroring.
	if _, _, err := repo.List(ctx, RepairRequestQuery{SortBy: "drop table", Page: 1, PageSize: 10}); err != nil {
		t.Errorf("unknown sort column: %v", err)
	}
}
