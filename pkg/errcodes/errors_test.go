package errcodes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Parallel()

	wrapped := errors.Wrap(NotFound("Progress"), "fetch")
	assert.True(t, HasCode(wrapped, CodeNotFound))
	assert.False(t, HasCode(wrapped, CodeUnauthorized))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
	assert.True(t, errors.Is(wrapped, NotFound("Progress")))
}

func TestUnauthorized(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "Unauthorized", Unauthorized("").Error())
	assert.Equal(t, "Unauthorized: bad token", Unauthorized("bad token").Error())
}

func TestHandler(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		code int
		body string
	}{
		{"custom error", NotFound("Book"), http.StatusNotFound, `{"error":"Book not found.","code":"not_found"}`},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed, "Method Not Allowed"), http.StatusMethodNotAllowed, `{"error":"Method Not Allowed","code":"method_not_allowed"}`},
		{"generic error", errors.New("boom"), http.StatusInternalServerError, `{"error":"Internal Server Error","code":"internal_server_error"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(tt *testing.T) {
			e := echo.New()
			rr := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rr)

			NewHandler().Handle(tc.err, c)

			require.Equal(tt, tc.code, rr.Code)
			assert.JSONEq(tt, tc.body, rr.Body.String())
		})
	}
}
