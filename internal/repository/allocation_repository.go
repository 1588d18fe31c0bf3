package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/njoroge/inventory-allocation/internal/model"
)

// AllocationRepo provides CRUD for allocations, the binding of one item
// to one member. Multi-step mutations run inside a transaction so a
// concurrent read never observes a half-updated allocation.
type AllocationRepo struct{ DB *sql.DB }

func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{DB: db} }

// AllocationRow is an allocation joined with member and item summaries.
type AllocationRow struct {
	ID            uint64  `json:"id"`
	UserID        uint64  `json:"user_id"`
	UserName      string  `json:"user_name"`
	UserEmail     string  `json:"user_email"`
	ItemID        uint64  `json:"item_id"`
	ItemName      string  `json:"item_name"`
	SerialNumber  string  `json:"serial_number"`
	Category      string  `json:"category"`
	County        string  `json:"county"`
	Model         string  `json:"model"`
	Status        string  `json:"status"`
	Message       *string `json:"message,omitempty"`
	DateAllocated string  `json:"date_allocated"`
	DateReturned  *string `json:"date_returned,omitempty"`
}

// AllocationQuery defines filters and pagination for listing
// allocations. Zero-valued filters are ignored.
type AllocationQuery struct {
	UserID   uint64
	ItemID   uint64
	Status   string
	Search   string
	Page     int
	PageSize int
}

const allocationJoin = ` FROM allocations a
	JOIN users u       ON u.id = a.user_id
	JOIN items i       ON i.id = a.item_id
	JOIN categories c  ON c.id = i.category_id
	JOIN counties co   ON co.id = i.county_id
	JOIN item_models m ON m.id = i.model_id`

const allocationCols = `a.id, a.user_id, u.name, u.email,
	a.item_id, i.name, i.serial_number, c.name, co.name, m.name,
	a.status, a.message, a.date_allocated, a.date_returned`

// List returns a page of allocations plus the total count. Search is a
// case-insensitive OR-substring match across status, message, member
// name/email and item name/serial/model/category/county.
func (r *AllocationRepo) List(ctx context.Context, q AllocationQuery) ([]AllocationRow, int64, error) {
	where := []string{}
	args := []any{}
	if q.UserID != 0 {
		where = append(where, "a.user_id = ?")
		args = append(args, q.UserID)
	}
	if q.ItemID != 0 {
		where = append(where, "a.item_id = ?")
		args = append(args, q.ItemID)
	}
	if q.Status != "" {
		where = append(where, "a.status = ?")
		args = append(args, q.Status)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		fields := []string{"a.status", "a.message", "u.name", "u.email",
			"i.name", "i.serial_number", "m.name", "c.name", "co.name"}
		likes := make([]string, len(fields))
		pat := "%" + strings.ToLower(s) + "%"
		for i, f := range fields {
			likes[i] = "LOWER(" + f + ") LIKE ?"
			args = append(args, pat)
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*)"+allocationJoin+" WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := "SELECT " + allocationCols + allocationJoin + `
		WHERE ` + cond + `
		ORDER BY a.date_allocated DESC, a.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.DB.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]AllocationRow, 0, q.PageSize)
	for rows.Next() {
		a, err := scanAllocation(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanAllocation(scan func(...any) error) (AllocationRow, error) {
	var (
		a        AllocationRow
		message  sql.NullString
		returned sql.NullString
	)
	err := scan(&a.ID, &a.UserID, &a.UserName, &a.UserEmail,
		&a.ItemID, &a.ItemName, &a.SerialNumber, &a.Category, &a.County, &a.Model,
		&a.Status, &message, &a.DateAllocated, &returned)
	if err != nil {
		return AllocationRow{}, err
	}
	a.Message = strPtr(message)
	a.DateReturned = strPtr(returned)
	return a, nil
}

// GetByID fetches one allocation with joined member and item summaries.
func (r *AllocationRepo) GetByID(ctx context.Context, id uint64) (AllocationRow, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+allocationCols+allocationJoin+" WHERE a.id = ?", id)
	return scanAllocation(row.Scan)
}

// Create binds a member to an item. Both references must exist. Unless
// allowDouble is set, an item with an existing active allocation cannot
// be allocated again; the check and the insert are a single conditional
// statement so concurrent creates cannot both succeed.
func (r *AllocationRepo) Create(ctx context.Context, userID, itemID uint64, message *string, allowDouble bool) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, ref := range []struct {
		table string
		id    uint64
	}{{"users", userID}, {"items", itemID}} {
		ok, err := rowExistsTx(ctx, tx, ref.table, ref.id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrInvalidReference
		}
	}

	now := nowStamp()
	var res sql.Result
	if allowDouble {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO allocations (user_id, item_id, status, message, date_allocated)
			 VALUES (?,?,?,?,?)`,
			userID, itemID, model.AllocationStatusActive, message, now)
	} else {
		res, err = tx.ExecContext(ctx,
			`INSERT INTO allocations (user_id, item_id, status, message, date_allocated)
			 SELECT ?,?,?,?,? FROM (SELECT 1) x
			 WHERE NOT EXISTS (SELECT 1 FROM allocations WHERE item_id=? AND status=?)`,
			userID, itemID, model.AllocationStatusActive, message, now,
			itemID, model.AllocationStatusActive)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrConflict
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// AllocationUpdate carries the optional fields of a partial update.
type AllocationUpdate struct {
	Message *string
	Status  *string
}

// Update applies a partial update. Setting status to returned stamps
// date_returned; setting it back to active clears it, keeping the
// returned ⇔ date_returned invariant. Unless allowDouble is set,
// reactivating an allocation whose item has since been handed out again
// fails with ErrConflict, mirroring the guard in Create.
func (r *AllocationRepo) Update(ctx context.Context, id uint64, upd AllocationUpdate, allowDouble bool) error {
	var (
		itemID  uint64
		current string
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT item_id, status FROM allocations WHERE id=?", id).Scan(&itemID, &current)
	if err != nil {
		return err
	}
	sets := []string{}
	args := []any{}
	if upd.Message != nil {
		sets = append(sets, "message=?")
		args = append(args, *upd.Message)
	}
	reactivating := false
	if upd.Status != nil {
		switch *upd.Status {
		case model.AllocationStatusReturned:
			sets = append(sets, "status=?", "date_returned=?")
			args = append(args, model.AllocationStatusReturned, nowStamp())
		case model.AllocationStatusActive:
			sets = append(sets, "status=?", "date_returned=NULL")
			args = append(args, model.AllocationStatusActive)
			reactivating = current != model.AllocationStatusActive
		default:
			return ErrInvalidTransition
		}
	}
	if len(sets) == 0 {
		return nil
	}
	where := "id=?"
	args = append(args, id)
	if reactivating && !allowDouble {
		// The existence check rides inside the UPDATE so a concurrent
		// allocation cannot slip in between check and write. The status
		// guard keeps the statement a real change, making RowsAffected
		// reliable under MySQL's changed-rows reporting.
		where += ` AND status=? AND NOT EXISTS (
			SELECT 1 FROM (SELECT 1 FROM allocations WHERE item_id=? AND status=?) x)`
		args = append(args, current, itemID, model.AllocationStatusActive)
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE allocations SET "+strings.Join(sets, ", ")+" WHERE "+where, args...)
	if err != nil {
		return err
	}
	if reactivating && !allowDouble {
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrConflict
		}
	}
	return nil
}

// Delete removes an allocation together with its return and repair
// requests.
func (r *AllocationRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := rowExistsTx(ctx, tx, "allocations", id)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	steps := []string{
		"DELETE FROM repair_requests WHERE allocation_id=?",
		"DELETE FROM return_requests WHERE allocation_id=?",
		"DELETE FROM allocations WHERE id=?",
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
