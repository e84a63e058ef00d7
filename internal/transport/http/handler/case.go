package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldesk/internal/app"
	"legaldesk/internal/transport/http/response"
)

type CaseHandler struct {
	caseService   *app.CaseService
	reportService *app.ReportService
}

func NewCaseHandler(caseService *app.CaseService, reportService *app.ReportService) *CaseHandler {
	return &CaseHandler{caseService: caseService, reportService: reportService}
}

func (h *CaseHandler) List(c *gin.Context) {
	cases, err := h.caseService.List(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, cases)
}

func (h *CaseHandler) ListArchived(c *gin.Context) {
	cases, err := h.caseService.ListArchived(c.Request.Context())
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, cases)
}

func (h *CaseHandler) Create(c *gin.Context) {
	var req app.CaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	created, err := h.caseService.Create(c.Request.Context(), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, created)
}

// Get returns the case context: the case, its photos with OCR results and
// the extracted summary.
func (h *CaseHandler) Get(c *gin.Context) {
	cc, err := h.caseService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, cc)
}

func (h *CaseHandler) Update(c *gin.Context) {
	var req app.CaseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	updated, err := h.caseService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, updated)
}

func (h *CaseHandler) Archive(c *gin.Context) {
	archived, err := h.caseService.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"success": true, "case": archived})
}

func (h *CaseHandler) Restore(c *gin.Context) {
	restored, err := h.caseService.Restore(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"success": true, "case": restored})
}

func (h *CaseHandler) Delete(c *gin.Context) {
	if err := h.caseService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Fail(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

func (h *CaseHandler) TranscriptionPDF(c *gin.Context) {
	content, err := h.reportService.TranscriptionPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Fail(c, err)
		return
	}
	writeAttachment(c, content)
}
