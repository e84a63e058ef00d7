package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldesk/internal/app"
	"legaldesk/internal/transport/http/response"
)

type PhotoHandler struct {
	photoService *app.PhotoService
}

func NewPhotoHandler(photoService *app.PhotoService) *PhotoHandler {
	return &PhotoHandler{photoService: photoService}
}

// Upload expects multipart fields "file" and "caseId".
func (h *PhotoHandler) Upload(c *gin.Context) {
	file, err := readUpload(c, "file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart payload")
		return
	}

	result, err := h.photoService.Upload(c.Request.Context(), c.PostForm("caseId"), file)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

func (h *PhotoHandler) OCRStatus(c *gin.Context) {
	status, err := h.photoService.OCRStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, status)
}

func (h *PhotoHandler) OCRDetails(c *gin.Context) {
	details, err := h.photoService.OCRDetails(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, details)
}

func (h *PhotoHandler) View(c *gin.Context) {
	content, err := h.photoService.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	writeInline(c, content)
}

func (h *PhotoHandler) AddComment(c *gin.Context) {
	var req app.CommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	comment, err := h.photoService.AddComment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, comment)
}

func (h *PhotoHandler) ListComments(c *gin.Context) {
	comments, err := h.photoService.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, comments)
}
