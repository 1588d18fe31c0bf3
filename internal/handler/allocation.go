package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/config"
	"github.com/njoroge/inventory-allocation/internal/repository"
)

// AllocationHandler exposes the allocation lifecycle. Members see only
// their own allocations; admins see and manage all of them.
type AllocationHandler struct {
	Cfg         config.Config
	Allocations *repository.AllocationRepo
}

func NewAllocationHandler(cfg config.Config, a *repository.AllocationRepo) *AllocationHandler {
	return &AllocationHandler{Cfg: cfg, Allocations: a}
}

// List returns a page of allocations. Supported query parameters:
// user_id, item_id, status, search, page, page_size. Non-admin callers
// are pinned to their own allocations regardless of user_id.
func (h *AllocationHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	q := repository.AllocationQuery{
		UserID:   queryID(c, "user_id"),
		ItemID:   queryID(c, "item_id"),
		Status:   c.QueryParam("status"),
		Search:   c.QueryParam("search"),
		Page:     page,
		PageSize: pageSize,
	}
	if !callerIsAdmin(c) {
		q.UserID = callerID(c)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, total, err := h.Allocations.List(ctx, q)
	if err != nil {
		return repoErr(c, err, "allocation")
	}
	return respondPage(c, rows, page, pageSize, total)
}

// Get returns one allocation. Members may only read their own.
func (h *AllocationHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	row, err := h.Allocations.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "allocation")
	}
	if !callerIsAdmin(c) && row.UserID != callerID(c) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	return respond(c, http.StatusOK, row)
}

type createAllocationReq struct {
	UserID  uint64  `json:"user_id"`
	ItemID  uint64  `json:"item_id"`
	Message *string `json:"message"`
}

// Create hands an item to a member. Unless double allocation is
// enabled, an item with an active allocation cannot be handed out
// again.
func (h *AllocationHandler) Create(c echo.Context) error {
	var req createAllocationReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.UserID == 0 || req.ItemID == 0 {
		return errJSON(c, http.StatusBadRequest, "user_id/item_id required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Allocations.Create(ctx, req.UserID, req.ItemID, req.Message,
		h.Cfg.AllowDoubleAllocation)
	if err != nil {
		return repoErr(c, err, "allocation")
	}

	row, err := h.Allocations.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "allocation")
	}
	return respond(c, http.StatusCreated, row)
}

type updateAllocationReq struct {
	Message *string `json:"message"`
	Status  *string `json:"status"`
}

// Update applies a partial update. Only active and returned are valid
// statuses; moving to returned stamps the return date and moving back
// to active clears it.
func (h *AllocationHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}
	var req updateAllocationReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	err = h.Allocations.Update(ctx, id, repository.AllocationUpdate{
		Message: req.Message,
		Status:  req.Status,
	}, h.Cfg.AllowDoubleAllocation)
	if err != nil {
		return repoErr(c, err, "allocation")
	}

	row, err := h.Allocations.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "allocation")
	}
	return respond(c, http.StatusOK, row)
}

// Delete removes an allocation and its requests.
func (h *AllocationHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Allocations.Delete(ctx, id); err != nil {
		return repoErr(c, err, "allocation")
	}
	return c.NoContent(http.StatusNoContent)
}
