package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/repository"
)

// ItemHandler exposes the item inventory. Reads are open to every
// authenticated member; writes are admin-gated by the router.
type ItemHandler struct {
	Items *repository.ItemRepo
}

func NewItemHandler(items *repository.ItemRepo) *ItemHandler {
	return &ItemHandler{Items: items}
}

// List returns a page of items. Supported query parameters: search,
// category_id, county_id, under_repair (true/false), page, page_size.
func (h *ItemHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	q := repository.ItemQuery{
		Search:     c.QueryParam("search"),
		CategoryID: queryID(c, "category_id"),
		CountyID:   queryID(c, "county_id"),
		Page:       page,
		PageSize:   pageSize,
	}
	switch strings.ToLower(c.QueryParam("under_repair")) {
	case "true", "1":
		t := true
		q.UnderRepair = &t
	case "false", "0":
		f := false
		q.UnderRepair = &f
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, total, err := h.Items.List(ctx, q)
	if err != nil {
		return repoErr(c, err, "item")
	}
	return respondPage(c, rows, page, pageSize, total)
}

// Get returns one item by id.
func (h *ItemHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	row, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "item")
	}
	return respond(c, http.StatusOK, row)
}

type createItemReq struct {
	Name         string `json:"name"`
	SerialNumber string `json:"serial_number"`
	CategoryID   uint64 `json:"category_id"`
	CountyID     uint64 `json:"county_id"`
	ModelID      uint64 `json:"model_id"`
}

// Create registers a new item. Every reference id must exist and the
// serial number must be unique.
func (h *ItemHandler) Create(c echo.Context) error {
	var req createItemReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || strings.TrimSpace(req.SerialNumber) == "" {
		return errJSON(c, http.StatusBadRequest, "name/serial_number required")
	}
	if req.CategoryID == 0 || req.CountyID == 0 || req.ModelID == 0 {
		return errJSON(c, http.StatusBadRequest, "category_id/county_id/model_id required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Items.Create(ctx, repository.NewItem{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		CategoryID:   req.CategoryID,
		CountyID:     req.CountyID,
		ModelID:      req.ModelID,
	})
	if err != nil {
		return repoErr(c, err, "item")
	}

	row, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "item")
	}
	return respond(c, http.StatusCreated, row)
}

type updateItemReq struct {
	Name         *string `json:"name"`
	SerialNumber *string `json:"serial_number"`
	CategoryID   *uint64 `json:"category_id"`
	CountyID     *uint64 `json:"county_id"`
	ModelID      *uint64 `json:"model_id"`
}

// Update applies a partial item update.
func (h *ItemHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}
	var req updateItemReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Items.Update(ctx, id, repository.ItemUpdate{
		Name:         req.Name,
		SerialNumber: req.SerialNumber,
		CategoryID:   req.CategoryID,
		CountyID:     req.CountyID,
		ModelID:      req.ModelID,
	})
	if err != nil {
		return repoErr(c, err, "item")
	}

	row, err := h.Items.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "item")
	}
	return respond(c, http.StatusOK, row)
}

// Delete removes an item. Items with an active allocation cannot be
// deleted.
func (h *ItemHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Items.Delete(ctx, id); err != nil {
		return repoErr(c, err, "item")
	}
	return c.NoContent(http.StatusNoContent)
}
