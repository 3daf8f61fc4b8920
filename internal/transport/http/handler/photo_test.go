package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"framecoach/internal/transport/http/middleware"
)

func multipartPhoto(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "photo.jpg")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

// Upload validation must reject the request as plain 400 JSON before the
// handler commits to an SSE response. A nil service proves the checks run
// first: reaching the analyze flow would panic.
func TestAnalyzeRejectsBadUploadsBeforeStreaming(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/photos/analyze", NewPhotoHandler(nil, 1024).Analyze)

	tests := []struct {
		name  string
		field string
		data  []byte
	}{
		{"empty file", "image", nil},
		{"wrong field", "photo", []byte("jpeg bytes")},
		{"oversized file", "image", bytes.Repeat([]byte("x"), 2048)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartPhoto(t, tt.field, tt.data)
			req := httptest.NewRequest(http.MethodPost, "/photos/analyze", body)
			req.Header.Set("Content-Type", contentType)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
			assert.NotEqual(t, "text/event-stream", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `"code"`)
		})
	}
}

func TestPhotoMIME(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		filename string
		want     string
	}{
		{"header wins", "image/png", "photo.jpg", "image/png"},
		{"octet-stream ignored", "application/octet-stream", "photo.png", "image/png"},
		{"from extension", "", "shot.webp", "image/webp"},
		{"tiff extension", "", "scan.TIFF", "image/tiff"},
		{"default jpeg", "", "photo", "image/jpeg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, photoMIME(tt.header, tt.filename))
		})
	}
}

func TestSanitizeSSE(t *testing.T) {
	assert.Equal(t, "a\\nb", sanitizeSSE("a\nb"))
	assert.Equal(t, "a\\nb", sanitizeSSE("a\r\nb"))
	assert.Equal(t, "plain", sanitizeSSE("plain"))
}

func TestRequesterKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "ip:10.1.2.3", requesterKey(c))

	c.Set(middleware.ContextUserIDKey, uint(9))
	assert.Equal(t, "user:9", requesterKey(c))
}
