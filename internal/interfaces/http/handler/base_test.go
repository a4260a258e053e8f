package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crm/backend/internal/domain/access"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/crm/backend/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newContext builds a gin context whose caller is p.
func newContext(method, target string, p access.Principal) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	c.Set(middleware.RequestIDKey, "req-1")
	if p.IsAuthenticated() {
		c.Set(middleware.PrincipalKey, p)
	}
	return c, w
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", shared.NewNotFoundError("account"), http.StatusNotFound, dto.ErrCodeNotFound},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden, dto.ErrCodeForbidden},
		{"unauthorized", shared.ErrUnauthorized, http.StatusUnauthorized, dto.ErrCodeUnauthorized},
		{"validation", shared.NewValidationError("bad"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"conflict", shared.ErrConcurrencyConflict, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"transition", shared.NewDomainError(shared.CodeInvalidTransition, "closed"), http.StatusUnprocessableEntity, dto.ErrCodeInvalidTransition},
		{"already exists", shared.NewDomainError(shared.CodeAlreadyExists, "dup"), http.StatusConflict, dto.ErrCodeAlreadyExists},
		{"user state", shared.NewDomainError("ALREADY_ACTIVE", "active"), http.StatusConflict, dto.ErrCodeUserState},
		{"wrapped domain error", fmt.Errorf("load: %w", shared.NewNotFoundError("lead")), http.StatusNotFound, dto.ErrCodeNotFound},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newContext(http.MethodGet, "/", access.Anonymous)
			var h BaseHandler
			h.HandleError(c, tt.err)
			testutil.AssertError(t, w, tt.status, tt.code)

			env := testutil.Decode[any](t, w)
			assert.Equal(t, "req-1", env.Error.RequestID)
		})
	}
}

func TestBaseHandler_HandleErrorKeepsInternalDetailsOut(t *testing.T) {
	c, w := newContext(http.MethodGet, "/", access.Anonymous)
	var h BaseHandler
	h.HandleError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "pq:")
	require.Len(t, c.Errors, 1, "the cause goes to the request log")
}

func TestBaseHandler_PathID(t *testing.T) {
	var h BaseHandler

	c, _ := newContext(http.MethodGet, "/", access.Anonymous)
	want := uuid.New()
	c.Params = gin.Params{{Key: "id", Value: want.String()}}
	got, ok := h.pathID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, want, got)

	c, w := newContext(http.MethodGet, "/", access.Anonymous)
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	_, ok = h.pathID(c, "id")
	assert.False(t, ok)
	testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
}

func TestBaseHandler_BindList(t *testing.T) {
	var h BaseHandler

	c, _ := newContext(http.MethodGet, "/?page=2&page_size=10&sort_by=created_at&sort_dir=asc", access.Anonymous)
	f, ok := h.bindList(c)
	require.True(t, ok)
	assert.Equal(t, 2, f.Page)
	assert.Equal(t, 10, f.PageSize)
	assert.Equal(t, "created_at", f.OrderBy)
	assert.Equal(t, "asc", f.OrderDir)

	c, w := newContext(http.MethodGet, "/?page_size=1000", access.Anonymous)
	_, ok = h.bindList(c)
	assert.False(t, ok)
	testutil.AssertError(t, w, http.StatusBadRequest, dto.ErrCodeValidation)
}

func TestPage_EmptyItemsEncodeAsArray(t *testing.T) {
	c, w := newContext(http.MethodGet, "/", access.Anonymous)
	var h BaseHandler
	page(&h, c, &shared.Paginated[string]{Total: 0, Page: 1, PageSize: 20})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
	env := testutil.Decode[[]string](t, w)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 1, env.Meta.Page)
}
