package router

import (
	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/handler"
	"github.com/njoroge/inventory-allocation/internal/middleware"
)

// MemberHandlers bundles the handlers reachable by any authenticated
// member. The handlers themselves scope list and detail reads to the
// caller when the caller is not an admin.
type MemberHandlers struct {
	Departments    *handler.ReferenceHandler
	Items          *handler.ItemHandler
	Allocations    *handler.AllocationHandler
	ReturnRequests *handler.ReturnRequestHandler
	RepairRequests *handler.RepairRequestHandler
}

// RegisterMember registers the authenticated, non-admin surface: item
// and department reads, the member's allocations, and filing return and
// repair requests.
func RegisterMember(e *echo.Echo, h MemberHandlers, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	g.GET("/departments", h.Departments.List)
	g.GET("/departments/:id", h.Departments.Get)

	g.GET("/items", h.Items.List)
	g.GET("/items/:id", h.Items.Get)

	g.GET("/allocations", h.Allocations.List)
	g.GET("/allocations/:id", h.Allocations.Get)

	g.POST("/return-requests", h.ReturnRequests.Create)
	g.GET("/return-requests", h.ReturnRequests.List)
	g.GET("/return-requests/:id", h.ReturnRequests.Get)

	g.POST("/repair-requests", h.RepairRequests.Create)
	g.GET("/repair-requests", h.RepairRequests.List)
	g.GET("/repair-requests/:id", h.RepairRequests.Get)
}
