package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validationf("bad input"), http.StatusBadRequest},
		{Conflictf("slot taken"), http.StatusBadRequest},
		{NotFoundf("missing"), http.StatusNotFound},
		{Authorizationf("nope"), http.StatusForbidden},
		{Internal("broke", errors.New("db down")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := HTTPStatus(tt.err); got != tt.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestHTTPStatusWrapped(t *testing.T) {
	err := fmt.Errorf("handler: %w", NotFoundf("Appointment not found"))
	if got := HTTPStatus(err); got != http.StatusNotFound {
		t.Errorf("HTTPStatus(wrapped) = %d, want 404", got)
	}
}

func renderToMap(t *testing.T, err error, dev bool) (int, map[string]interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if rerr := Render(c, err, dev); rerr != nil {
		t.Fatalf("Render: %v", rerr)
	}
	var body map[string]interface{}
	if derr := json.Unmarshal(rec.Body.Bytes(), &body); derr != nil {
		t.Fatalf("unmarshal body: %v", derr)
	}
	return rec.Code, body
}

func TestRenderValidation(t *testing.T) {
	code, body := renderToMap(t, Validationf("Reason must be between 5 and 500 characters"), false)
	if code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", code)
	}
	if body["success"] != false {
		t.Error("success should be false")
	}
	if body["message"] != "Reason must be between 5 and 500 characters" {
		t.Errorf("message = %v", body["message"])
	}
	if _, ok := body["error"]; ok {
		t.Error("non-internal errors should not carry an error detail")
	}
}

func TestRenderInternalHidesDetailInProduction(t *testing.T) {
	err := Internal("Error booking appointment", errors.New("connection refused"))
	_, body := renderToMap(t, err, false)
	if body["message"] != "Error booking appointment" {
		t.Errorf("message = %v", body["message"])
	}
	if body["error"] != "Something went wrong" {
		t.Errorf("error detail = %v, want generic", body["error"])
	}
}

func TestRenderInternalShowsDetailInDev(t *testing.T) {
	err := Internal("Error booking appointment", errors.New("connection refused"))
	_, body := renderToMap(t, err, true)
	if body["error"] != "connection refused" {
		t.Errorf("error detail = %v, want raw cause", body["error"])
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("db down")
	err := Internal("store failure", cause)
	if !errors.Is(err, cause) {
		t.Error("Internal should wrap its cause")
	}
}
