package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// reqCtx derives a bounded context for repository calls so a stuck
// database cannot pin request goroutines.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// callerID returns the authenticated member's id set by JWTAuth.
func callerID(c echo.Context) uint64 {
	id, _ := c.Get("user_id").(uint64)
	return id
}

// callerIsAdmin reports whether JWTAuth marked the caller as admin.
func callerIsAdmin(c echo.Context) bool {
	v, _ := c.Get("is_admin").(bool)
	return v
}

// pathID parses the :id route parameter.
func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

// pageParams reads ?page and ?page_size with defaults and caps.
func pageParams(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// queryID reads an optional numeric query parameter, returning 0 when
// absent or malformed.
func queryID(c echo.Context, name string) uint64 {
	n, _ := strconv.ParseUint(c.QueryParam(name), 10, 64)
	return n
}

// bindStrict decodes a JSON body rejecting unknown fields, so typos in
// request payloads surface as 400s instead of silently dropped fields.
func bindStrict(c echo.Context, dst any) error {
	dec := json.NewDecoder(c.Request().Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Trailing garbage after the object is also a malformed body.
	if dec.More() {
		return errors.New("unexpected trailing data")
	}
	return nil
}

// repoErr translates repository sentinels into the HTTP vocabulary.
// notFound names the resource in 404 messages.
func repoErr(c echo.Context, err error, notFound string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return errJSON(c, http.StatusNotFound, notFound+" not found")
	case errors.Is(err, repository.ErrForbidden):
		return errJSON(c, http.StatusForbidden, "forbidden")
	case errors.Is(err, repository.ErrConflict):
		return errJSON(c, http.StatusConflict, "conflict")
	case errors.Is(err, repository.ErrInvalidReference):
		return errJSON(c, http.StatusBadRequest, "invalid reference")
	case errors.Is(err, repository.ErrInvalidTransition):
		return errJSON(c, http.StatusBadRequest, "invalid status transition")
	case errors.Is(err, repository.ErrEmailExists):
		return errJSON(c, http.StatusConflict, "email already exists")
	}
	return errJSON(c, http.StatusInternalServerError, "internal error")
}
