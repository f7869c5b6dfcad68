// Package respond renders the service's JSON response envelope. Every
// endpoint replies with {success, message?, data?, error?} so clients can
// branch on a single boolean regardless of status code.
package respond

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the wire shape of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK writes a success envelope with the given status code.
func OK(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Fail writes a failure envelope with the given status code.
func Fail(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Message: message})
}

// FailWithDetail writes a failure envelope including a detail string, used in
// development mode to expose the underlying error.
func FailWithDetail(c echo.Context, status int, message, detail string) error {
	return c.JSON(status, Envelope{Success: false, Message: message, Error: detail})
}
