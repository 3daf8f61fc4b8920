package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"framecoach/internal/app"
	"framecoach/internal/model"
	"framecoach/internal/transport/http/middleware"
	"framecoach/internal/transport/http/response"
)

type PhotoHandler struct {
	critiqueService *app.CritiqueService
	maxUploadBytes  int64
}

func NewPhotoHandler(critiqueService *app.CritiqueService, maxUploadBytes int64) *PhotoHandler {
	return &PhotoHandler{
		critiqueService: critiqueService,
		maxUploadBytes:  maxUploadBytes,
	}
}

// Analyze accepts a multipart form with "image" and streams the critique back
// as server-sent events. Cache hits arrive as a single "cached" event; fresh
// critiques stream as "data" events and close with a "done" event carrying
// the full result.
func (h *PhotoHandler) Analyze(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing photo file (form field 'image')")
		return
	}
	if h.maxUploadBytes > 0 && file.Size > h.maxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeUploadTooLarge, "photo too large")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to open uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read photo")
		return
	}
	if len(data) == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "photo is empty")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "stream not supported")
		return
	}

	result, err := h.critiqueService.AnalyzePhoto(c.Request.Context(), app.AnalyzePhotoInput{
		RequesterKey: requesterKey(c),
		Filename:     file.Filename,
		MIMEType:     photoMIME(file.Header.Get("Content-Type"), file.Filename),
		Data:         data,
	}, func(chunk string) error {
		if _, writeErr := c.Writer.Write([]byte("data: " + sanitizeSSE(chunk) + "\n\n")); writeErr != nil {
			return writeErr
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		writeSSEError(c, flusher, err)
		return
	}

	event := "done"
	if result.Cached {
		event = "cached"
	}
	payload, _ := json.Marshal(result)
	if _, writeErr := c.Writer.Write([]byte("event: " + event + "\ndata: " + sanitizeSSE(string(payload)) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

func (h *PhotoHandler) History(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, parseErr := strconv.Atoi(raw); parseErr == nil {
			limit = parsed
		}
	}

	analyses, err := h.critiqueService.History(requesterKey(c), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list analyses failed")
		return
	}
	response.OK(c, analyses)
}

func (h *PhotoHandler) GetByHash(c *gin.Context) {
	analysis, err := h.critiqueService.GetByHash(c.Param("hash"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrAnalysisNotFound):
			response.Error(c, http.StatusNotFound, response.CodeAnalysisNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "fetch analysis failed")
		}
		return
	}
	response.OK(c, gin.H{
		"analysis": analysis,
		"exif":     analysis.ExifFields(),
	})
}

func (h *PhotoHandler) Delete(c *gin.Context) {
	id64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid analysis id")
		return
	}

	if err := h.critiqueService.Delete(requesterKey(c), uint(id64)); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrAnalysisNotFound):
			response.Error(c, http.StatusNotFound, response.CodeAnalysisNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete analysis failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_analysis_id": uint(id64)})
}

func writeSSEError(c *gin.Context, flusher http.Flusher, err error) {
	msg := "analysis failed"
	switch {
	case errors.Is(err, app.ErrEmptyUpload),
		errors.Is(err, app.ErrUploadTooLarge),
		errors.Is(err, app.ErrEmptyCritique),
		errors.Is(err, app.ErrLLMConfig),
		errors.Is(err, app.ErrAnalysisEnqueue):
		msg = err.Error()
	}
	if _, writeErr := c.Writer.Write([]byte("event: error\ndata: " + sanitizeSSE(msg) + "\n\n")); writeErr == nil {
		flusher.Flush()
	}
}

// requesterKey identifies who is asking: the authenticated user when a valid
// token was sent, otherwise the client address.
func requesterKey(c *gin.Context) string {
	if userID, ok := getUserIDFromContext(c); ok && userID != 0 {
		return model.RequesterKeyForUser(userID)
	}
	return model.RequesterKeyForIP(c.ClientIP())
}

func getUserIDFromContext(c *gin.Context) (uint, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := userIDAny.(uint)
	return userID, ok
}

func photoMIME(headerType, filename string) string {
	headerType = strings.TrimSpace(headerType)
	if headerType != "" && headerType != "application/octet-stream" {
		return headerType
	}
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".png"):
		return "image/png"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	case strings.HasSuffix(lower, ".gif"):
		return "image/gif"
	case strings.HasSuffix(lower, ".tif"), strings.HasSuffix(lower, ".tiff"):
		return "image/tiff"
	default:
		return "image/jpeg"
	}
}

func sanitizeSSE(input string) string {
	replaced := strings.ReplaceAll(input, "\r\n", "\\n")
	replaced = strings.ReplaceAll(replaced, "\n", "\\n")
	return replaced
}
