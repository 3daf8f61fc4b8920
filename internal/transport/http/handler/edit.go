package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"framecoach/internal/app"
	"framecoach/internal/transport/http/response"
)

type EditHandler struct {
	editService *app.EditService
}

type CreateEditRequest struct {
	FileHash string `json:"file_hash" binding:"required,len=64"`
}

func NewEditHandler(editService *app.EditService) *EditHandler {
	return &EditHandler{editService: editService}
}

// Create generates edited revisions for a previously analyzed photo and
// returns them with before/after quality metrics.
func (h *EditHandler) Create(c *gin.Context) {
	var req CreateEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.editService.EditPhoto(c.Request.Context(), req.FileHash)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrAnalysisNotFound), errors.Is(err, app.ErrOriginalUnavailable):
			response.Error(c, http.StatusNotFound, response.CodeAnalysisNotFound, err.Error())
		case errors.Is(err, app.ErrUnsupportedImage):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "edit failed")
		}
		return
	}

	response.OK(c, result)
}

func (h *EditHandler) ListByHash(c *gin.Context) {
	revisions, err := h.editService.EditHistory(c.Param("hash"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list edits failed")
		return
	}
	response.OK(c, revisions)
}
