package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/njoroge/inventory-allocation/internal/model"
)

// ItemRepo provides CRUD for items. Category, county and model are
// stored as integer foreign keys; display names are joined in on read.
type ItemRepo struct{ DB *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{DB: db} }

// ItemRow is an item joined with its reference names, as returned to
// clients.
type ItemRow struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	SerialNumber   string  `json:"serial_number"`
	CategoryID     uint64  `json:"category_id"`
	Category       string  `json:"category"`
	CountyID       uint64  `json:"county_id"`
	County         string  `json:"county"`
	ModelID        uint64  `json:"model_id"`
	Model          string  `json:"model"`
	IsUnderRepair  bool    `json:"is_under_repair"`
	LastRepairDate *string `json:"last_repair_date,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// ItemQuery defines filters and pagination for listing items.
type ItemQuery struct {
	Search      string
	CategoryID  uint64
	CountyID    uint64
	UnderRepair *bool
	Page        int
	PageSize    int
}

const itemJoin = ` FROM items i
	JOIN categories c  ON c.id = i.category_id
	JOIN counties co   ON co.id = i.county_id
	JOIN item_models m ON m.id = i.model_id`

// List returns a page of items plus the total count. Search matches a
// case-insensitive substring of the item name, serial number or any of
// the joined reference names.
func (r *ItemRepo) List(ctx context.Context, q ItemQuery) ([]ItemRow, int64, error) {
	where := []string{}
	args := []any{}
	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where,
			"(LOWER(i.name) LIKE ? OR LOWER(i.serial_number) LIKE ? OR LOWER(c.name) LIKE ? OR LOWER(co.name) LIKE ? OR LOWER(m.name) LIKE ?)")
		pat := "%" + strings.ToLower(s) + "%"
		args = append(args, pat, pat, pat, pat, pat)
	}
	if q.CategoryID != 0 {
		where = append(where, "i.category_id = ?")
		args = append(args, q.CategoryID)
	}
	if q.CountyID != 0 {
		where = append(where, "i.county_id = ?")
		args = append(args, q.CountyID)
	}
	if q.UnderRepair != nil {
		where = append(where, "i.is_under_repair = ?")
		args = append(args, *q.UnderRepair)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*)"+itemJoin+" WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT i.id, i.name, i.serial_number,
			i.category_id, c.name, i.county_id, co.name, i.model_id, m.name,
			i.is_under_repair, i.last_repair_date, i.created_at` + itemJoin + `
		WHERE ` + cond + `
		ORDER BY i.name ASC
		LIMIT ? OFFSET ?`
	args = append(args, q.PageSize, (q.Page-1)*q.PageSize)

	rows, err := r.DB.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]ItemRow, 0, q.PageSize)
	for rows.Next() {
		var (
			it     ItemRow
			repair sql.NullString
		)
		if err := rows.Scan(&it.ID, &it.Name, &it.SerialNumber,
			&it.CategoryID, &it.Category, &it.CountyID, &it.County, &it.ModelID, &it.Model,
			&it.IsUnderRepair, &repair, &it.CreatedAt); err != nil {
			return nil, 0, err
		}
		it.LastRepairDate = strPtr(repair)
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// GetByID fetches one item joined with its reference names.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (ItemRow, error) {
	var (
		it     ItemRow
		repair sql.NullString
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT i.id, i.name, i.serial_number,
			i.category_id, c.name, i.county_id, co.name, i.model_id, m.name,
			i.is_under_repair, i.last_repair_date, i.created_at`+itemJoin+`
		WHERE i.id = ?`, id).
		Scan(&it.ID, &it.Name, &it.SerialNumber,
			&it.CategoryID, &it.Category, &it.CountyID, &it.County, &it.ModelID, &it.Model,
			&it.IsUnderRepair, &repair, &it.CreatedAt)
	if err != nil {
		return ItemRow{}, err
	}
	it.LastRepairDate = strPtr(repair)
	return it, nil
}

// NewItem carries the fields required to create an item.
type NewItem struct {
	Name         string
	SerialNumber string
	CategoryID   uint64
	CountyID     uint64
	ModelID      uint64
}

// Create inserts an item after verifying every reference exists.
func (r *ItemRepo) Create(ctx context.Context, ni NewItem) (uint64, error) {
	refs := []struct {
		table string
		id    uint64
	}{
		{"categories", ni.CategoryID},
		{"counties", ni.CountyID},
		{"item_models", ni.ModelID},
	}
	for _, ref := range refs {
		ok, err := rowExists(ctx, r.DB, ref.table, ref.id)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrInvalidReference
		}
	}
	now := nowStamp()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO items (name, serial_number, category_id, county_id, model_id, is_under_repair, created_at, updated_at)
		 VALUES (?,?,?,?,?,0,?,?)`,
		ni.Name, strings.TrimSpace(ni.SerialNumber), ni.CategoryID, ni.CountyID, ni.ModelID, now, now)
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

// ItemUpdate carries the optional fields of a partial item update.
type ItemUpdate struct {
	Name         *string
	SerialNumber *string
	CategoryID   *uint64
	CountyID     *uint64
	ModelID      *uint64
}

// Update applies a partial update, validating any changed reference.
func (r *ItemRepo) Update(ctx context.Context, id uint64, upd ItemUpdate) error {
	ok, err := rowExists(ctx, r.DB, "items", id)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	sets := []string{"updated_at=?"}
	args := []any{nowStamp()}
	if upd.Name != nil {
		sets = append(sets, "name=?")
		args = append(args, *upd.Name)
	}
	if upd.SerialNumber != nil {
		sets = append(sets, "serial_number=?")
		args = append(args, strings.TrimSpace(*upd.SerialNumber))
	}
	fks := []struct {
		table string
		col   string
		id    *uint64
	}{
		{"categories", "category_id", upd.CategoryID},
		{"counties", "county_id", upd.CountyID},
		{"item_models", "model_id", upd.ModelID},
	}
	for _, fk := range fks {
		if fk.id == nil {
			continue
		}
		ok, err := rowExists(ctx, r.DB, fk.table, *fk.id)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidReference
		}
		sets = append(sets, fk.col+"=?")
		args = append(args, *fk.id)
	}
	args = append(args, id)
	_, err = r.DB.ExecContext(ctx,
		"UPDATE items SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if isDuplicateErr(err) {
		return ErrConflict
	}
	return err
}

// Delete removes an item and everything hanging off it. An item with an
// active allocation cannot be deleted; otherwise its repair requests,
// return requests and allocations are removed with the item in a single
// transaction.
func (r *ItemRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := rowExistsTx(ctx, tx, "items", id)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	var active int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM allocations WHERE item_id=? AND status=?",
		id, model.AllocationStatusActive).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	steps := []string{
		"DELETE FROM repair_requests WHERE item_id=?",
		"DELETE FROM return_requests WHERE allocation_id IN (SELECT id FROM allocations WHERE item_id=?)",
		"DELETE FROM allocations WHERE item_id=?",
		"DELETE FROM items WHERE id=?",
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}
