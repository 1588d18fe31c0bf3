package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/njoroge/inventory-allocation/internal/model"
	"github.com/njoroge/inventory-allocation/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

// NewUser carries the fields required to create a member.
type NewUser struct {
	Name         string
	Email        string
	Phone        string
	County       string
	DepartmentID *uint64
	Password     string
	IsAdmin      bool
}

// Create inserts a member and returns its ID. The email is normalized
// to lowercase; the password is hashed with bcrypt before storage.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	nu.Email = strings.ToLower(strings.TrimSpace(nu.Email))
	if nu.DepartmentID != nil {
		ok, err := rowExists(ctx, r.DB, "departments", *nu.DepartmentID)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrInvalidReference
		}
	}
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	now := nowStamp()
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, county, department_id, password_hash, is_admin, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		nu.Name, nu.Email, nu.Phone, nu.County, nu.DepartmentID, hash, nu.IsAdmin, now, now)
	if err != nil {
		if isDuplicateErr(err) {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (r *UserRepo) scanUser(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		deptID  sql.NullInt64
		created string
		updated string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.County, &deptID,
		&u.PasswordHash, &u.IsAdmin, &created, &updated)
	if err != nil {
		return model.User{}, err
	}
	u.DepartmentID = uintPtr(deptID)
	u.CreatedAt = parseStamp(created)
	u.UpdatedAt = parseStamp(updated)
	return u, nil
}

const userCols = "id, name, email, phone, county, department_id, password_hash, is_admin, created_at, updated_at"

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
}

// UserRow is the list/detail shape returned to admins: the user joined
// with its department name.
type UserRow struct {
	ID             uint64  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	County         string  `json:"county"`
	IsAdmin        bool    `json:"is_admin"`
	DepartmentID   *uint64 `json:"department_id,omitempty"`
	DepartmentName *string `json:"department,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// List returns a page of users, optionally filtered by a
// case-insensitive substring match on name, email or phone.
func (r *UserRepo) List(ctx context.Context, search string, page, pageSize int) ([]UserRow, int64, error) {
	cond := "1=1"
	args := []any{}
	if s := strings.TrimSpace(search); s != "" {
		cond = "(LOWER(u.name) LIKE ? OR LOWER(u.email) LIKE ? OR u.phone LIKE ?)"
		pat := "%" + strings.ToLower(s) + "%"
		args = append(args, pat, pat, pat)
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users u WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dataSQL := `SELECT u.id, u.name, u.email, u.phone, u.county, u.is_admin,
			u.department_id, d.name, u.created_at
		FROM users u
		LEFT JOIN departments d ON d.id = u.department_id
		WHERE ` + cond + `
		ORDER BY u.name ASC
		LIMIT ? OFFSET ?`
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.DB.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]UserRow, 0, pageSize)
	for rows.Next() {
		var (
			u      UserRow
			deptID sql.NullInt64
			dept   sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.County,
			&u.IsAdmin, &deptID, &dept, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		u.DepartmentID = uintPtr(deptID)
		u.DepartmentName = strPtr(dept)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// UserUpdate carries the optional fields of a partial profile update.
// Nil fields are left unchanged.
type UserUpdate struct {
	Name         *string
	Email        *string
	Phone        *string
	County       *string
	DepartmentID *uint64
	IsAdmin      *bool
}

// Update applies a partial update. A department reference must point at
// an existing department.
func (r *UserRepo) Update(ctx context.Context, id uint64, upd UserUpdate) error {
	ok, err := rowExists(ctx, r.DB, "users", id)
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
	if upd.Email != nil {
		sets = append(sets, "email=?")
		args = append(args, strings.ToLower(strings.TrimSpace(*upd.Email)))
	}
	if upd.Phone != nil {
		sets = append(sets, "phone=?")
		args = append(args, *upd.Phone)
	}
	if upd.County != nil {
		sets = append(sets, "county=?")
		args = append(args, *upd.County)
	}
	if upd.DepartmentID != nil {
		ok, err := rowExists(ctx, r.DB, "departments", *upd.DepartmentID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInvalidReference
		}
		sets = append(sets, "department_id=?")
		args = append(args, *upd.DepartmentID)
	}
	if upd.IsAdmin != nil {
		sets = append(sets, "is_admin=?")
		args = append(args, *upd.IsAdmin)
	}
	args = append(args, id)
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if isDuplicateErr(err) {
		return ErrEmailExists
	}
	return err
}

// Delete removes a member. A member with an active allocation cannot be
// deleted; otherwise the member's requests, allocations and refresh
// tokens are removed in the same transaction.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ok, err := rowExistsTx(ctx, tx, "users", id)
	if err != nil {
		return err
	}
	if !ok {
		return sql.ErrNoRows
	}
	var active int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM allocations WHERE user_id=? AND status=?",
		id, model.AllocationStatusActive).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return ErrConflict
	}
	steps := []string{
		"DELETE FROM repair_requests WHERE allocation_id IN (SELECT id FROM allocations WHERE user_id=?)",
		"DELETE FROM return_requests WHERE allocation_id IN (SELECT id FROM allocations WHERE user_id=?)",
		"DELETE FROM allocations WHERE user_id=?",
		"DELETE FROM refresh_tokens WHERE user_id=?",
		"DELETE FROM users WHERE id=?",
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func rowExists(ctx context.Context, db *sql.DB, table string, id uint64) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id=? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func rowExistsTx(ctx context.Context, tx *sql.Tx, table string, id uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id=? LIMIT 1", id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
