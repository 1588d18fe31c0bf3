package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pagination describes the window of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type envelope struct {
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// respond wraps a payload in the {"data": ...} envelope every endpoint
// uses.
func respond(c echo.Context, status int, data any) error {
	return c.JSON(status, envelope{Data: data})
}

// respondPage wraps a list payload plus its pagination block. A page
// past the end returns an empty list with the correct totals.
func respondPage(c echo.Context, data any, page, pageSize int, total int64) error {
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return c.JSON(http.StatusOK, envelope{
		Data: data,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: pages,
		},
	})
}

func errJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}
