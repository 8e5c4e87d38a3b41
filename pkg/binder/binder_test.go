package binder

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Hello string `json:"hello" mod:"trim" validate:"max=9"`
	Omit  string `json:"-"`
}

type pathParams struct {
	BookID string `param:"bookId" json:"-" validate:"bookid"`
	Limit  int    `query:"limit" json:"-" default:"10" validate:"min=1,max=50"`
}

var (
	goodJSON             = `{"hello":" world "}`
	unknownFieldsErrJSON = `{"hello":"world","foo":"bar"}`
	typeErrJSON          = `{"hello":123}`
	validationErrJSON    = `{"hello":"0123456789"}`
	malformedJSON        = `{"hello":`
)

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("only allows application/json", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationXML)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("allows unknown fields when asked", func(tt *testing.T) {
		c := newContext(unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		c.Set("disallow_unknown_fields", false)
		p := params{}
		require.NoError(tt, b.Bind(&p, c))
		assert.Equal(tt, "world", p.Hello)
	})

	t.Run("returns a good message for type errors", func(tt *testing.T) {
		c := newContext(typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"hello" should be of type string`)
	})

	t.Run("rejects malformed bodies", func(tt *testing.T) {
		c := newContext(malformedJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Invalid request body")
	})

	t.Run("rejects empty bodies", func(tt *testing.T) {
		c := newContext("", echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Request body can't be empty")
	})

	t.Run("use mod tag to modify params", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "world", p.Hello)
	})

	t.Run("use validate tag to validate params", func(tt *testing.T) {
		c := newContext(validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 9 characters")
	})

	t.Run("binds path and query params", func(tt *testing.T) {
		c := newGetContext("/sync/a.txt?limit=5", "a.txt")
		p := pathParams{}
		require.NoError(tt, b.Bind(&p, c))
		assert.Equal(tt, "a.txt", p.BookID)
		assert.Equal(tt, 5, p.Limit)
	})

	t.Run("applies defaults", func(tt *testing.T) {
		c := newGetContext("/sync/a.txt", "a.txt")
		p := pathParams{}
		require.NoError(tt, b.Bind(&p, c))
		assert.Equal(tt, 10, p.Limit)
	})

	t.Run("validates book ids", func(tt *testing.T) {
		c := newGetContext("/sync/x", "a\x00b")
		p := pathParams{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"bookId" must be a file name`)
	})
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}

func newGetContext(target, bookID string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	c := e.NewContext(req, rr)
	c.SetParamNames("bookId")
	c.SetParamValues(bookID)
	return c
}
