package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/model"
	"github.com/njoroge/inventory-allocation/internal/queue"
	"github.com/njoroge/inventory-allocation/internal/repository"
	queue_publisher "github.com/njoroge/inventory-allocation/internal/service"
)

// ReturnRequestHandler exposes the return-request workflow: members
// file requests against their active allocations, admins resolve them.
type ReturnRequestHandler struct {
	Requests *repository.ReturnRequestRepo
}

func NewReturnRequestHandler(r *repository.ReturnRequestRepo) *ReturnRequestHandler {
	return &ReturnRequestHandler{Requests: r}
}

type createReturnReq struct {
	AllocationID uint64  `json:"allocation_id"`
	Message      *string `json:"message"`
}

// Create files a return request. The allocation must be active and
// belong to the caller unless the caller is an admin; one pending
// request per allocation.
func (h *ReturnRequestHandler) Create(c echo.Context) error {
	var req createReturnReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.AllocationID == 0 {
		return errJSON(c, http.StatusBadRequest, "allocation_id required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	id, err := h.Requests.Create(ctx, req.AllocationID, callerID(c), req.Message, callerIsAdmin(c))
	if err != nil {
		return repoErr(c, err, "allocation")
	}

	row, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "return request")
	}
	return respond(c, http.StatusCreated, row)
}

// List returns a page of return requests, filterable by status and
// search. Non-admin callers only ever see their own requests.
func (h *ReturnRequestHandler) List(c echo.Context) error {
	page, pageSize := pageParams(c)
	q := repository.ReturnRequestQuery{
		Status:   c.QueryParam("status"),
		Search:   c.QueryParam("search"),
		Page:     page,
		PageSize: pageSize,
	}
	if !callerIsAdmin(c) {
		q.RequestedBy = callerID(c)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	rows, total, err := h.Requests.List(ctx, q)
	if err != nil {
		return repoErr(c, err, "return request")
	}
	return respondPage(c, rows, page, pageSize, total)
}

// Get returns one return request. Members may only read their own.
func (h *ReturnRequestHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	row, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "return request")
	}
	if !callerIsAdmin(c) && row.RequestedByID != callerID(c) {
		return errJSON(c, http.StatusForbidden, "forbidden")
	}
	return respond(c, http.StatusOK, row)
}

type processReturnReq struct {
	Status     string  `json:"status"`
	AdminNotes *string `json:"admin_notes"`
}

// Process resolves a pending request as approved or rejected. Approval
// marks the allocation returned in the same transaction and publishes
// an allocation.returned event; publish failures never fail the
// request.
func (h *ReturnRequestHandler) Process(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid id")
	}
	var req processReturnReq
	if err := bindStrict(c, &req); err != nil {
		return errJSON(c, http.StatusBadRequest, "invalid body")
	}
	if req.Status != model.ReturnStatusApproved && req.Status != model.ReturnStatusRejected {
		return errJSON(c, http.StatusBadRequest, "status must be approved or rejected")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	out, err := h.Requests.UpdateStatus(ctx, id, req.Status, req.AdminNotes, callerID(c))
	if err != nil {
		return repoErr(c, err, "return request")
	}

	if out.Status == model.ReturnStatusApproved {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pubCancel()
		_ = queue_publisher.PublishAllocationEvent(pubCtx, queue.AllocationEvent{
			Event:        queue.EventAllocationReturned,
			RequestID:    out.RequestID,
			AllocationID: out.AllocationID,
			ItemID:       out.ItemID,
			UserID:       out.UserID,
			OccurredAt:   time.Now().UTC().Format("2006-01-02 15:04:05"),
		})
	}

	row, err := h.Requests.GetByID(ctx, id)
	if err != nil {
		return repoErr(c, err, "return request")
	}
	return respond(c, http.StatusOK, row)
}
