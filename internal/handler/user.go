package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/config"
	"github.com/njoroge/inventory-allocation/internal/repository"
)

// UserHandler exposes the admin member directory: list, inspect,
// create, update and delete accounts, including admin promotion.
type UserHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u}
}

// List returns a page of members, optionally filtered by ?search across
// name, email and phone.
func (h *UserHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)

	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, total, err := h.Users.List(ctx, c.QueryParam("search"), page, pageSize)
	if err != nil {
		return repoErr(c, err, "user")
	}
	return respondPage(c, rows, page, pageSize, total)
}

// Get returns one member by id.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "user")
	}
	return respond(c, http.StatusOK, meResp{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		County:       u.County,
		DepartmentID: u.DepartmentID,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	})
}

type createUserReq struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Password     string  `json:"password"`
	County       string  `json:"county"`
	DepartmentID *uint64 `json:"department_id"`
	IsAdmin      bool    `json:"is_admin"`
}

// Create lets an admin provision an account directly, including other
// admins.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "name/email/password required")
	}
	if len(req.Password) < 8 {
		return errJSON(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Users.Create(ctx, repository.NewUser{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		County:       strings.TrimSpace(req.County),
		DepartmentID: req.DepartmentID,
		Password:     req.Password,
		IsAdmin:      req.IsAdmin,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return repoErr(c, err, "user")
	}
	return respond(c, http.StatusCreated, echo.Map{"id": id})
}

type updateUserReq struct {
	Name         *string `json:"name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	County       *string `json:"county"`
	DepartmentID *uint64 `json:"department_id"`
	IsAdmin      *bool   `json:"is_admin"`
}

// Update applies a partial update to a member. Promoting or demoting an
// admin only takes effect on the member's next token.
func (h *UserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}
	var req updateUserReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Users.Update(ctx, id, repository.UserUpdate{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		County:       req.County,
		DepartmentID: req.DepartmentID,
		IsAdmin:      req.IsAdmin,
	})
	if err != nil {
		return repoErr(c, err, "user")
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "user")
	}
	return respond(c, http.StatusOK, meResp{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Phone:        u.Phone,
		County:       u.County,
		DepartmentID: u.DepartmentID,
		IsAdmin:      u.IsAdmin,
		CreatedAt:    u.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
	})
}

// Delete removes a member. A member still holding an active allocation
// cannot be deleted.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return repoErr(c, err, "user")
	}
	return c.NoContent(http.StatusNoContent)
}
