package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/njoroge/inventory-allocation/internal/model"
)

// RepairRequestRepo provides the repair-request workflow. Creating a
// request flags the bound item as under repair; resolving it syncs the
// item's repair flag inside the same transaction.
type RepairRequestRepo struct{ DB *sql.DB }

func NewRepairRequestRepo(db *sql.DB) *RepairRequestRepo { return &RepairRequestRepo{DB: db} }

// repairTransitions encodes the directional status machine. Statuses
// absent from the map are terminal.
var repairTransitions = map[string]map[string]bool{
	model.RepairStatusPending: {
		model.RepairStatusInProgress: true,
		model.RepairStatusRejected:   true,
	},
	model.RepairStatusInProgress: {
		model.RepairStatusCompleted: true,
		model.RepairStatusRejected:  true,
	},
}

// repairSortColumns whitelists the sortable columns for List.
var repairSortColumns = map[string]string{
	"requested_at": "p.requested_at",
	"updated_at":   "p.updated_at",
	"completed_at": "p.completed_at",
	"status":       "p.status",
	"issue":        "p.issue",
}

// RepairRequestRow is a repair request joined with requester and item
// summaries.
type RepairRequestRow struct {
	ID              uint64  `json:"id"`
	AllocationID    uint64  `json:"allocation_id"`
	ItemID          uint64  `json:"item_id"`
	ItemName        string  `json:"item_name"`
	SerialNumber    string  `json:"serial_number"`
	RequestedByID   uint64  `json:"requested_by_id"`
	RequesterName   string  `json:"requester_name"`
	Status          string  `json:"status"`
	Issue           string  `json:"issue"`
	AdditionalNotes *string `json:"additional_notes,omitempty"`
	AdminNotes      *string `json:"admin_notes,omitempty"`
	RequestedAt     string  `json:"requested_at"`
	UpdatedAt       string  `json:"updated_at"`
	CompletedAt     *string `json:"completed_at,omitempty"`
	CompletedByID   *uint64 `json:"completed_by_id,omitempty"`
}

const repairReqJoin = ` FROM repair_requests p
	JOIN users u ON u.id = p.requested_by
	JOIN items i ON i.id = p.item_id`

const repairReqCols = `p.id, p.allocation_id, p.item_id, i.name, i.serial_number,
	p.requested_by, u.name, p.status, p.issue, p.additional_notes, p.admin_notes,
	p.requested_at, p.updated_at, p.completed_at, p.completed_by`

// Create files a repair request against an active allocation owned by
// the caller (admins may file on behalf of anyone). At most one request
// in a non-terminal state may exist per allocation; the check and the
// insert are one conditional statement. The bound item is flagged as
// under repair in the same transaction.
func (r *RepairRequestRepo) Create(ctx context.Context, allocationID, requesterID uint64, issue string, additionalNotes *string, isAdmin bool) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var (
		ownerID uint64
		itemID  uint64
		status  string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, item_id, status FROM allocations WHERE id=? LIMIT 1", allocationID).
		Scan(&ownerID, &itemID, &status)
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

	now := nowStamp()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO repair_requests (allocation_id, item_id, requested_by, status, issue, additional_notes, requested_at, updated_at)
		 SELECT ?,?,?,?,?,?,?,? FROM (SELECT 1) x
		 WHERE NOT EXISTS (SELECT 1 FROM repair_requests WHERE allocation_id=? AND status IN (?,?))`,
		allocationID, itemID, requesterID, model.RepairStatusPending, issue, additionalNotes, now, now,
		allocationID, model.RepairStatusPending, model.RepairStatusInProgress)
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

	if _, err := tx.ExecContext(ctx,
		"UPDATE items SET is_under_repair=?, last_repair_date=?, updated_at=? WHERE id=?",
		true, now, now, itemID); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// RepairRequestQuery defines filters, sorting and pagination for
// listing repair requests. SortBy must name a whitelisted column;
// unknown values fall back to requested_at.
type RepairRequestQuery struct {
	Status       string
	AllocationID uint64
	ItemID       uint64
	RequestedBy  uint64
	SortBy       string
	SortDesc     bool
	Page         int
	PageSize     int
}

// List returns a page of repair requests plus the total count.
func (r *RepairRequestRepo) List(ctx context.Context, q RepairRequestQuery) ([]RepairRequestRow, int64, error) {
	where := []string{}
	args := []any{}
	if q.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, q.Status)
	}
	if q.AllocationID != 0 {
		where = append(where, "p.allocation_id = ?")
		args = append(args, q.AllocationID)
	}
	if q.ItemID != 0 {
		where = append(where, "p.item_id = ?")
		args = append(args, q.ItemID)
	}
	if q.RequestedBy != 0 {
		where = append(where, "p.requested_by = ?")
		args = append(args, q.RequestedBy)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*)"+repairReqJoin+" WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	orderCol, ok := repairSortColumns[q.SortBy]
	if !ok {
		orderCol = "p.requested_at"
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}

	dataSQL := "SELECT " + repairReqCols + repairReqJoin + `
		WHERE ` + cond + `
		ORDER BY ` + orderCol + ` ` + dir + `, p.id ` + dir + `
		LIMIT ? OFFSET ?`
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.DB.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]RepairRequestRow, 0, q.PageSize)
	for rows.Next() {
		p, err := scanRepairRequest(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanRepairRequest(scan func(...any) error) (RepairRequestRow, error) {
	var (
		p           RepairRequestRow
		additional  sql.NullString
		notes       sql.NullString
		completedAt sql.NullString
		completedBy sql.NullInt64
	)
	err := scan(&p.ID, &p.AllocationID, &p.ItemID, &p.ItemName, &p.SerialNumber,
		&p.RequestedByID, &p.RequesterName, &p.Status, &p.Issue, &additional, &notes,
		&p.RequestedAt, &p.UpdatedAt, &completedAt, &completedBy)
	if err != nil {
		return RepairRequestRow{}, err
	}
	p.AdditionalNotes = strPtr(additional)
	p.AdminNotes = strPtr(notes)
	p.CompletedAt = strPtr(completedAt)
	p.CompletedByID = uintPtr(completedBy)
	return p, nil
}

// GetByID fetches one repair request with joined summaries.
func (r *RepairRequestRepo) GetByID(ctx context.Context, id uint64) (RepairRequestRow, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+repairReqCols+repairReqJoin+" WHERE p.id = ?", id)
	return scanRepairRequest(row.Scan)
}

// ProcessedRepair reports the outcome of an UpdateStatus call for event
// publication.
type ProcessedRepair struct {
	RequestID    uint64
	AllocationID uint64
	ItemID       uint64
	Status       string
	ItemFixed    bool
}

// UpdateStatus advances a repair request along the status machine. The
// current status is re-checked inside the UPDATE so concurrent
// transitions cannot both apply. Side effects on the item:
//
//	completed – is_under_repair cleared only when itemFixed, and
//	            last_repair_date stamped either way;
//	rejected  – is_under_repair always cleared.
func (r *RepairRequestRepo) UpdateStatus(ctx context.Context, id uint64, status string, adminNotes *string, itemFixed bool, adminID uint64) (ProcessedRepair, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return ProcessedRepair{}, err
	}
	defer tx.Rollback()

	var (
		out     ProcessedRepair
		current string
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, allocation_id, item_id, status FROM repair_requests WHERE id=? LIMIT 1", id).
		Scan(&out.RequestID, &out.AllocationID, &out.ItemID, &current)
	if err != nil {
		return ProcessedRepair{}, err
	}
	if !repairTransitions[current][status] {
		return ProcessedRepair{}, ErrInvalidTransition
	}

	now := nowStamp()
	sets := []string{"status=?", "updated_at=?"}
	args := []any{status, now}
	if adminNotes != nil {
		sets = append(sets, "admin_notes=?")
		args = append(args, *adminNotes)
	}
	if status == model.RepairStatusCompleted {
		sets = append(sets, "completed_at=?", "completed_by=?")
		args = append(args, now, adminID)
	}
	args = append(args, id, current)
	res, err := tx.ExecContext(ctx,
		"UPDATE repair_requests SET "+strings.Join(sets, ", ")+" WHERE id=? AND status=?",
		args...)
	if err != nil {
		return ProcessedRepair{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return ProcessedRepair{}, err
	}
	if n == 0 {
		return ProcessedRepair{}, ErrInvalidTransition
	}

	switch status {
	case model.RepairStatusCompleted:
		if _, err := tx.ExecContext(ctx,
			"UPDATE items SET is_under_repair=?, last_repair_date=?, updated_at=? WHERE id=?",
			!itemFixed, now, now, out.ItemID); err != nil {
			return ProcessedRepair{}, err
		}
	case model.RepairStatusRejected:
		if _, err := tx.ExecContext(ctx,
			"UPDATE items SET is_under_repair=?, updated_at=? WHERE id=?",
			false, now, out.ItemID); err != nil {
			return ProcessedRepair{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ProcessedRepair{}, err
	}
	out.Status = status
	out.ItemFixed = itemFixed
	return out, nil
}
