package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldesk/internal/app"
	"legaldesk/internal/transport/http/response"
)

type FileHandler struct {
	fileService *app.FileService
}

func NewFileHandler(fileService *app.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// Upload expects multipart fields "file", "caseId" and optionally
// "description" and "isImportant".
func (h *FileHandler) Upload(c *gin.Context) {
	file, err := readUpload(c, "file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart payload")
		return
	}

	result, err := h.fileService.Upload(c.Request.Context(), app.AdditionalFileInput{
		CaseID:      c.PostForm("caseId"),
		Description: c.PostForm("description"),
		IsImportant: c.PostForm("isImportant") == "true",
	}, file)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, result)
}

func (h *FileHandler) List(c *gin.Context) {
	files, err := h.fileService.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, files)
}

func (h *FileHandler) Download(c *gin.Context) {
	content, err := h.fileService.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	writeAttachment(c, content)
}

func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.fileService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}
