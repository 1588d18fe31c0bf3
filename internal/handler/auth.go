package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/config"
	"github.com/njoroge/inventory-allocation/internal/repository"
	"github.com/njoroge/inventory-allocation/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Password     string  `json:"password"`
	County       string  `json:"county"`
	DepartmentID *uint64 `json:"department_id"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID      uint64 `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register creates a member and returns tokens immediately. The first
// registration matching BOOTSTRAP_ADMIN_EMAIL comes up as admin so a
// fresh deployment has someone who can promote the rest.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "name/email/password required")
	}
	if len(req.Password) < 8 {
		return errJSON(c, http.StatusBadRequest, "password must be at least 8 characters")
	}

	isAdmin := h.Cfg.BootstrapAdminEmail != "" && req.Email == h.Cfg.BootstrapAdminEmail

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		County:       strings.TrimSpace(req.County),
		DepartmentID: req.DepartmentID,
		Password:     req.Password,
		IsAdmin:      isAdmin,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return repoErr(c, err, "user")
	}

	resp, err := h.issuePair(c, uid, req.Name, req.Email, isAdmin)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue tokens failed")
	}
	return respond(c, http.StatusCreated, resp)
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return errJSON(c, http.StatusBadRequest, "email/password required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err == sql.ErrNoRows {
		return errJSON(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return repoErr(c, err, "user")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return errJSON(c, http.StatusUnauthorized, "invalid credentials")
	}

	resp, err := h.issuePair(c, u.ID, u.Name, u.Email, u.IsAdmin)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue tokens failed")
	}
	return respond(c, http.StatusOK, resp)
}

// Refresh exchanges a valid refresh token for a new pair, revoking the
// presented token so each refresh token is single-use.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bindStrict(c, &req); err != nil || req.RefreshToken == "" {
		return errJSON(c, http.StatusBadRequest, "refresh_token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	hash := utils.HashRefreshRaw(req.RefreshToken)
	uid, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh token")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh token")
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return errJSON(c, http.StatusInternalServerError, "revoke failed")
	}

	resp, err := h.issuePair(c, u.ID, u.Name, u.Email, u.IsAdmin)
	if err != nil {
		return errJSON(c, http.StatusInternalServerError, "issue tokens failed")
	}
	return respond(c, http.StatusOK, resp)
}

// Logout revokes the presented refresh token. The access token stays
// valid until it expires; there is no revocation list.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bindStrict(c, &req); err != nil || req.RefreshToken == "" {
		return errJSON(c, http.StatusBadRequest, "refresh_token required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(req.RefreshToken)); err != nil {
		return errJSON(c, http.StatusUnauthorized, "invalid refresh token")
	}
	return c.NoContent(http.StatusNoContent)
}

type meResp struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	County       string  `json:"county"`
	DepartmentID *uint64 `json:"department_id,omitempty"`
	IsAdmin      bool    `json:"is_admin"`
	CreatedAt    string  `json:"created_at"`
}

// Me returns the authenticated member's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, callerID(c))
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

// issuePair mints and stores a fresh access+refresh pair.
func (h *AuthHandler) issuePair(c echo.Context, uid uint64, name, email string, isAdmin bool) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, isAdmin, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tokens.StoreRefresh(ctx, uid, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    userPart{ID: uid, Name: name, Email: email, IsAdmin: isAdmin},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw goes back to the client once
	}, nil
}
