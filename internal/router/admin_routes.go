package router

import (
	"github.com/labstack/echo/v4"

	"github.com/njoroge/inventory-allocation/internal/handler"
	"github.com/njoroge/inventory-allocation/internal/middleware"
)

// AdminHandlers bundles the handlers behind the admin gate.
type AdminHandlers struct {
	Users          *handler.UserHandler
	Items          *handler.ItemHandler
	Categories     *handler.ReferenceHandler
	Counties       *handler.ReferenceHandler
	Models         *handler.ReferenceHandler
	Departments    *handler.ReferenceHandler
	Allocations    *handler.AllocationHandler
	ReturnRequests *handler.ReturnRequestHandler
	RepairRequests *handler.RepairRequestHandler
}

// RegisterAdmin registers every admin-only route: the member directory,
// inventory and reference writes, allocation management and request
// approvals. Updates accept both PUT and PATCH.
func RegisterAdmin(e *echo.Echo, h AdminHandlers, jwtSecret string) {
	g := e.Group("/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireAdmin(),
	)

	// Member directory
	g.GET("/users", h.Users.List)
	g.GET("/users/:id", h.Users.Get)
	g.POST("/users", h.Users.Create)
	g.PUT("/users/:id", h.Users.Update)
	g.PATCH("/users/:id", h.Users.Update)
	g.DELETE("/users/:id", h.Users.Delete)

	// Inventory writes
	g.POST("/items", h.Items.Create)
	g.PUT("/items/:id", h.Items.Update)
	g.PATCH("/items/:id", h.Items.Update)
	g.DELETE("/items/:id", h.Items.Delete)

	// Reference table writes
	for path, ref := range map[string]*handler.ReferenceHandler{
		"/categories":  h.Categories,
		"/counties":    h.Counties,
		"/models":      h.Models,
		"/departments": h.Departments,
	} {
		g.POST(path, ref.Create)
		g.PUT(path+"/:id", ref.Update)
		g.PATCH(path+"/:id", ref.Update)
		g.DELETE(path+"/:id", ref.Delete)
	}

	// Allocation management
	g.POST("/allocations", h.Allocations.Create)
	g.PUT("/allocations/:id", h.Allocations.Update)
	g.PATCH("/allocations/:id", h.Allocations.Update)
	g.DELETE("/allocations/:id", h.Allocations.Delete)

	// Request approvals
	g.PATCH("/return-requests/:id/status", h.ReturnRequests.Process)
	g.PATCH("/repair-requests/:id/status", h.RepairRequests.Process)
}
