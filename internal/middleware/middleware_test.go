package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestValidateTaskIDParam(t *testing.T) {
	tests := []struct {
		name       string
		taskID     string
		wantStatus int
	}{
		{"valid uuid", "550e8400-e29b-41d4-a716-446655440000", http.StatusOK},
		{"valid short", "task123", http.StatusOK},
		{"valid with underscore", "my_task", http.StatusOK},
		{"too long", strings.Repeat("a", 129), http.StatusBadRequest},
		{"invalid chars", "task@123", http.StatusBadRequest},
		{"path traversal", "../etc/passwd", http.StatusBadRequest},
		{"empty", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			c.Params = gin.Params{{Key: "task_id", Value: tt.taskID}}

			mw := ValidateTaskIDParam()
			mw(c)

			if tt.wantStatus == http.StatusOK {
				assert.False(t, c.IsAborted())
			} else {
				assert.True(t, c.IsAborted())
				assert.Equal(t, tt.wantStatus, w.Code)
			}
		})
	}
}

func TestValidateTaskID(t *testing.T) {
	assert.True(t, ValidateTaskID("abc-123_XYZ"))
	assert.True(t, ValidateTaskID(strings.Repeat("a", 128)))
	assert.False(t, ValidateTaskID(""))
	assert.False(t, ValidateTaskID(strings.Repeat("a", 129)))
	assert.False(t, ValidateTaskID("has space"))
	assert.False(t, ValidateTaskID("has/slash"))
}

func TestPayloadSizeLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/", strings.NewReader(`{"task_id":"t1"}`))
		c.Request.ContentLength = 16

		mw := PayloadSizeLimit(MaxPayloadSize)
		mw(c)

		assert.False(t, c.IsAborted())
	})

	t.Run("over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/", nil)
		c.Request.ContentLength = MaxPayloadSize + 1

		mw := PayloadSizeLimit(MaxPayloadSize)
		mw(c)

		assert.True(t, c.IsAborted())
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/", nil)

		mw := RequestIDMiddleware()
		mw(c)

		assert.NotEmpty(t, GetRequestID(c), "应自动生成 request_id")
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("keeps provided id", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/", nil)
		c.Request.Header.Set("X-Request-ID", "req-42")

		mw := RequestIDMiddleware()
		mw(c)

		assert.Equal(t, "req-42", GetRequestID(c), "应沿用调用方提供的 request_id")
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
	})
}
