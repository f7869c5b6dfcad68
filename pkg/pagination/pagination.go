// Package pagination implements page/limit pagination for list endpoints.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// FromContext extracts page/limit query parameters from the echo context.
// The second return value is false when the parameters are present but out
// of bounds (page < 1 or limit outside [1,100]).
func FromContext(c echo.Context) (Params, bool) {
	p := Params{Page: DefaultPage, Limit: DefaultLimit}

	if raw := c.QueryParam("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, false
		}
		p.Page = n
	}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return p, false
		}
		p.Limit = n
	}

	if p.Page < 1 || p.Limit < 1 || p.Limit > MaxLimit {
		return p, false
	}
	return p, true
}

// Offset returns the number of records to skip for the current page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Response describes the page window of a list result.
type Response struct {
	CurrentPage       int  `json:"currentPage"`
	TotalPages        int  `json:"totalPages"`
	TotalAppointments int  `json:"totalAppointments"`
	HasNext           bool `json:"hasNext"`
	HasPrev           bool `json:"hasPrev"`
}

// NewResponse computes the page window for a result of pageSize records out
// of total. hasNext compares skip+pageSize against the total, so a short
// final page reports no further results.
func NewResponse(p Params, pageSize, total int) Response {
	totalPages := total / p.Limit
	if total%p.Limit != 0 {
		totalPages++
	}
	return Response{
		CurrentPage:       p.Page,
		TotalPages:        totalPages,
		TotalAppointments: total,
		HasNext:           p.Offset()+pageSize < total,
		HasPrev:           p.Page > 1,
	}
}
