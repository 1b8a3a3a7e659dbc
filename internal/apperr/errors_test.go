package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: ErrNotFound, want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("organization %w", ErrNotFound), want: http.StatusNotFound},
		{name: "page not found", err: ErrPageNotFound, want: http.StatusNotFound},
		{name: "validation", err: fmt.Errorf("%w: bad date", ErrValidation), want: http.StatusUnprocessableEntity},
		{name: "anything else", err: errors.New("connection reset"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func serve(t *testing.T, handler gin.HandlerFunc, method, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Handle(method, "/", handler)

	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	return w, response
}

func TestRespond_HidesInternalErrors(t *testing.T) {
	w, response := serve(t, func(c *gin.Context) {
		Respond(c, errors.New("pq: password authentication failed"))
	}, http.MethodGet, "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", response["error"])
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRespond_ExposesDomainErrors(t *testing.T) {
	w, response := serve(t, func(c *gin.Context) {
		Respond(c, fmt.Errorf("event %w", ErrNotFound))
	}, http.MethodGet, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "event not found", response["error"])
}

func TestRespondValidation_ListsFields(t *testing.T) {
	UseJSONFieldNames()

	type payload struct {
		Name string `json:"name" binding:"required"`
		Date string `json:"date" binding:"omitempty,datetime=2006-01-02"`
	}

	w, response := serve(t, func(c *gin.Context) {
		var p payload
		if err := c.ShouldBindJSON(&p); err != nil {
			RespondValidation(c, err)
			return
		}
		c.Status(http.StatusOK)
	}, http.MethodPost, `{"date": "tomorrow"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "validation failed", response["error"])

	details, ok := response["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "required", details["name"])
	assert.Equal(t, "datetime", details["date"])
}

func TestRespondValidation_MalformedJSON(t *testing.T) {
	w, response := serve(t, func(c *gin.Context) {
		var p struct {
			Name string `json:"name"`
		}
		if err := c.ShouldBindJSON(&p); err != nil {
			RespondValidation(c, err)
			return
		}
		c.Status(http.StatusOK)
	}, http.MethodPost, `{"name": }`)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.IsType(t, "", response["details"])
}
