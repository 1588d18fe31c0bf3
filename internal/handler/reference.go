package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/repository"
)

// ReferenceHandler serves one reference table (categories, counties,
// item models or departments). The four resources share the exact same
// shape, so one handler instance per table covers them all.
type ReferenceHandler struct {
	Repo *repository.ReferenceRepo
	// name is the singular resource name used in error messages.
	name string
}

func NewReferenceHandler(repo *repository.ReferenceRepo, name string) *ReferenceHandler {
	return &ReferenceHandler{Repo: repo, name: name}
}

// List returns every row of the table. Reference tables are small and
// change rarely; no pagination.
func (h *ReferenceHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	refs, err := h.Repo.List(ctx)
	if err != nil {
		return repoErr(c, err, h.name)
	}
	return respond(c, http.StatusOK, refs)
}

// Get returns one row by id.
func (h *ReferenceHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	ref, err := h.Repo.Get(ctx, id)
	if err != nil {
		return repoErr(c, err, h.name)
	}
	return respond(c, http.StatusOK, ref)
}

type referenceReq struct {
	Name string `json:"name"`
}

// Create inserts a row. Names are unique per table.
func (h *ReferenceHandler) Create(c echo.Context) error {
	var req referenceReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errJSON(c, http.StatusBadRequest, "name required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Repo.Create(ctx, req.Name)
	if err != nil {
		return repoErr(c, err, h.name)
	}
	return respond(c, http.StatusCreated, echo.Map{"id": id, "name": req.Name})
}

// Update renames a row.
func (h *ReferenceHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}
	var req referenceReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return errJSON(c, http.StatusBadRequest, "name required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Repo.Update(ctx, id, req.Name); err != nil {
		return repoErr(c, err, h.name)
	}
	return respond(c, http.StatusOK, echo.Map{"id": id, "name": req.Name})
}

// Delete removes a row unless something still references it.
func (h *ReferenceHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Repo.Delete(ctx, id); err != nil {
		return repoErr(c, err, h.name)
	}
	return c.NoContent(http.StatusNoContent)
}
