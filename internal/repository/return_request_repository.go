package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/njoroge/inventory-allocation/internal/model"
)

// ReturnRequestRepo provides the return-request workflow: a member asks
// to end an allocation early, an admin approves or rejects. Approval
// flips the allocation to returned inside the same transaction.
type ReturnRequestRepo struct{ DB *sql.DB }

func NewReturnRequestRepo(db *sql.DB) *ReturnRequestRepo { return &ReturnRequestRepo{DB: db} }

// ReturnRequestRow is a return request joined with requester and item
// summaries.
type ReturnRequestRow struct {
	ID            uint64  `json:"id"`
	AllocationID  uint64  `json:"allocation_id"`
	RequestedByID uint64  `json:"requested_by_id"`
	RequesterName string  `json:"requester_name"`
	ItemID        uint64  `json:"item_id"`
	ItemName      string  `json:"item_name"`
	SerialNumber  string  `json:"serial_number"`
	Status        string  `json:"status"`
	Message       *string `json:"message,omitempty"`
	AdminNotes    *string `json:"admin_notes,omitempty"`
	RequestedAt   string  `json:"requested_at"`
	ProcessedAt   *string `json:"processed_at,omitempty"`
	ProcessedByID *uint64 `json:"processed_by_id,omitempty"`
}

const returnReqJoin = ` FROM return_requests rr
	JOIN allocations a ON a.id = rr.allocation_id
	JOIN users u       ON u.id = rr.requested_by
	JOIN items i       ON i.id = a.item_id`

const returnReqCols = `rr.id, rr.allocation_id, rr.requested_by, u.name,
	a.item_id, i.name, i.serial_number,
	rr.status, rr.message, rr.admin_notes, rr.requested_at, rr.processed_at, rr.processed_by`

// Create files a return request for an allocation. The caller must be
// the allocation's owner or an admin, the allocation must still be
// active, and only one pending request may exist per allocation. The
// uniqueness check and the insert are one conditional statement.
func (r *ReturnRequestRepo) Create(ctx context.Context, allocationID, requesterID uint64, message *string, isAdmin bool) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var (
		ownerID uint64
		status  string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, status FROM allocations WHERE id=? LIMIT 1", allocationID).
		Scan(&ownerID, &status)
	if err == sql.ErrNoRows {
		return 0, ErrInvalidReference
	}
	if err != nil {
		return 0, err
	}
	if ownerID != requesterID && !isAdmin {
		return 0, ErrForbidden
	}
	if status != model.AllocationStatusActive {
		return 0, ErrInvalidReference
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO return_requests (allocation_id, requested_by, status, message, requested_at)
		 SELECT ?,?,?,?,? FROM (SELECT 1) x
		 WHERE NOT EXISTS (SELECT 1 FROM return_requests WHERE allocation_id=? AND status=?)`,
		allocationID, requesterID, model.ReturnStatusPending, message, nowStamp(),
		allocationID, model.ReturnStatusPending)
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

// ReturnRequestQuery defines filters for listing return requests.
// RequestedBy forces the list to one requester; handlers set it for
// non-admin callers.
type ReturnRequestQuery struct {
	Status      string
	Search      string
	RequestedBy uint64
	Page        int
	PageSize    int
}

// List returns a page of return requests plus the total count. Search
// matches message, admin notes, requester name, item name or serial.
func (r *ReturnRequestRepo) List(ctx context.Context, q ReturnRequestQuery) ([]ReturnRequestRow, int64, error) {
	where := []string{}
	args := []any{}
	if q.Status != "" {
		where = append(where, "rr.status = ?")
		args = append(args, q.Status)
	}
	if q.RequestedBy != 0 {
		where = append(where, "rr.requested_by = ?")
		args = append(args, q.RequestedBy)
	}
	if s := strings.TrimSpace(q.Search); s != "" {
		fields := []string{"rr.message", "rr.admin_notes", "u.name", "i.name", "i.serial_number"}
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
		"SELECT COUNT(*)"+returnReqJoin+" WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := "SELECT " + returnReqCols + returnReqJoin + `
		WHERE ` + cond + `
		ORDER BY rr.requested_at DESC, rr.id DESC
		LIMIT ? OFFSET ?`
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.DB.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]ReturnRequestRow, 0, q.PageSize)
	for rows.Next() {
		rr, err := scanReturnRequest(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanReturnRequest(scan func(...any) error) (ReturnRequestRow, error) {
	var (
		rr          ReturnRequestRow
		message     sql.NullString
		notes       sql.NullString
		processedAt sql.NullString
		processedBy sql.NullInt64
	)
	err := scan(&rr.ID, &rr.AllocationID, &rr.RequestedByID, &rr.RequesterName,
		&rr.ItemID, &rr.ItemName, &rr.SerialNumber,
		&rr.Status, &message, &notes, &rr.RequestedAt, &processedAt, &processedBy)
	if err != nil {
		return ReturnRequestRow{}, err
	}
	rr.Message = strPtr(message)
	rr.AdminNotes = strPtr(notes)
	rr.ProcessedAt = strPtr(processedAt)
	rr.ProcessedByID = uintPtr(processedBy)
	return rr, nil
}

// GetByID fetches one return request with joined summaries.
func (r *ReturnRequestRepo) GetByID(ctx context.Context, id uint64) (ReturnRequestRow, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+returnReqCols+returnReqJoin+" WHERE rr.id = ?", id)
	return scanReturnRequest(row.Scan)
}

// ProcessedReturn reports the outcome of an UpdateStatus call for event
// publication.
type ProcessedReturn struct {
	RequestID    uint64
	AllocationID uint64
	ItemID       uint64
	UserID       uint64
	Status       string
}

// UpdateStatus resolves a pending request. Only pending requests can be
// processed; the status guard lives in the UPDATE itself so a second
// concurrent approval affects zero rows and fails with
// ErrInvalidTransition instead of double-mutating the allocation. On
// approval the allocation is marked returned in the same transaction.
func (r *ReturnRequestRepo) UpdateStatus(ctx context.Context, id uint64, status string, adminNotes *string, adminID uint64) (ProcessedReturn, error) {
	if status != model.ReturnStatusApproved && status != model.ReturnStatusRejected {
		return ProcessedReturn{}, ErrInvalidTransition
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return ProcessedReturn{}, err
	}
	defer tx.Rollback()

	var out ProcessedReturn
	err = tx.QueryRowContext(ctx,
		`SELECT rr.id, rr.allocation_id, a.item_id, a.user_id
		 FROM return_requests rr JOIN allocations a ON a.id = rr.allocation_id
		 WHERE rr.id=? LIMIT 1`, id).
		Scan(&out.RequestID, &out.AllocationID, &out.ItemID, &out.UserID)
	if err != nil {
		return ProcessedReturn{}, err
	}

	now := nowStamp()
	res, err := tx.ExecContext(ctx,
		`UPDATE return_requests SET status=?, admin_notes=?, processed_at=?, processed_by=?
		 WHERE id=? AND status=?`,
		status, adminNotes, now, adminID, id, model.ReturnStatusPending)
	if err != nil {
		return ProcessedReturn{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ProcessedReturn{}, err
	}
	if n == 0 {
		return ProcessedReturn{}, ErrInvalidTransition
	}

	if status == model.ReturnStatusApproved {
		if _, err := tx.ExecContext(ctx,
			`UPDATE allocations SET status=?, date_returned=? WHERE id=? AND status=?`,
			model.AllocationStatusReturned, now, out.AllocationID, model.AllocationStatusActive); err != nil {
			return ProcessedReturn{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ProcessedReturn{}, err
	}
	out.Status = status
	return out, nil
}
