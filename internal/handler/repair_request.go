package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/model"
	"github.com/njoroge/inventory-allocation/internal/queue"
	"github.com/njoroge/inventory-allocation/internal/repository"
	queue_publisher "github.com/njoroge/inventory-allocation/internal/service"
)

// RepairRequestHandler exposes the repair workflow: members report a
// faulty item on one of their active allocations, admins walk the
// request through pending → in_progress → completed (or reject it).
type RepairRequestHandler struct {
	Requests *repository.RepairRequestRepo
}

func NewRepairRequestHandler(r *repository.RepairRequestRepo) *RepairRequestHandler {
	return &RepairRequestHandler{Requests: r}
}

type createRepairReq struct {
	AllocationID    uint64  `json:"allocation_id"`
	Issue           string  `json:"issue"`
	AdditionalNotes *string `json:"additional_notes"`
}

// Create files a repair request and flags the item as under repair.
func (h *RepairRequestHandler) Create(c echo.Context) error {
	var req createRepairReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	req.Issue = strings.TrimSpace(req.Issue)
	if req.AllocationID == 0 || req.Issue == "" {
		return errJSON(c, http.StatusBadRequest, "allocation_id/issue required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Requests.Create(ctx, req.AllocationID, callerID(c), req.Issue,
		req.AdditionalNotes, callerIsAdmin(c))
	if err != nil {
		return repoErr(c, err, "allocation")
	}

	row, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "repair request")
	}
	return respond(c, http.StatusCreated, row)
}

// List returns a page of repair requests. Supported query parameters:
// status, allocation_id, item_id, requested_by, sort_by, order
// (asc/desc), page, page_size. Non-admin callers only ever see their
// own requests, whatever requested_by says.
func (h *RepairRequestHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	q := repository.RepairRequestQuery{
		Status:       c.QueryParam("status"),
		AllocationID: queryID(c, "allocation_id"),
		ItemID:       queryID(c, "item_id"),
		RequestedBy:  queryID(c, "requested_by"),
		SortBy:       c.QueryParam("sort_by"),
		SortDesc:     strings.EqualFold(c.QueryParam("order"), "desc"),
		Page:         page,
		PageSize:     pageSize,
	}
	if !callerIsAdmin(c) {
		q.RequestedBy = callerID(c)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, total, err := h.Requests.List(ctx, q)
	if err != nil {
		return repoErr(c, err, "repair request")
	}
	return respondPage(c, rows, page, pageSize, total)
}

// Get returns one repair request. Members may only read their own.
func (h *RepairRequestHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	row, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "repair request")
	}
	if !callerIsAdmin(c) && row.RequestedByID != callerID(c) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	return respond(c, http.StatusOK, row)
}

type processRepairReq struct {
	Status      string  `json:"status"`
	AdminNotes  *string `json:"admin_notes"`
	IsItemFixed *bool   `json:"is_item_fixed"`
}

// Process advances a repair request. Completing one requires an
// explicit is_item_fixed verdict: the item's repair flag is cleared
// only when the verdict is true. Completion publishes a
// repair.completed event; publish failures never fail the request.
func (h *RepairRequestHandler) Process(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}
	var req processRepairReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	switch req.Status {
	case model.RepairStatusInProgress, model.RepairStatusCompleted, model.RepairStatusRejected:
	default:
		return errJSON(c, http.StatusBadRequest, "status must be in_progress, completed or rejected")
	}
	itemFixed := false
	if req.Status == model.RepairStatusCompleted {
		if req.IsItemFixed == nil {
			return errJSON(c, http.StatusBadRequest, "is_item_fixed required when completing")
		}
		itemFixed = *req.IsItemFixed
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Requests.UpdateStatus(ctx, id, req.Status, req.AdminNotes, itemFixed, callerID(c))
	if err != nil {
		return repoErr(c, err, "repair request")
	}

	if out.Status == model.RepairStatusCompleted {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		_ = queue_publisher.PublishAllocationEvent(pubCtx, queue.AllocationEvent{
			Event:        queue.EventRepairCompleted,
			RequestID:    out.RequestID,
			AllocationID: out.AllocationID,
			ItemID:       out.ItemID,
			ItemFixed:    out.ItemFixed,
			OccurredAt:   time.Now().UTC().Format("2006-01-02 15:04:05"),
		})
	}

	row, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "repair request")
	}
	return respond(c, http.StatusOK, row)
}
