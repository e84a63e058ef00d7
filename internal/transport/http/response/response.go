package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldesk/internal/apperr"
)

const (
	CodeOK                 = 0
	CodeBadRequest         = 40000
	CodeNotFound           = 40400
	CodeCaseNotFound       = 40401
	CodePhotoNotFound      = 40402
	CodeFileNotFound       = 40403
	CodeInternalServer     = 50000
	CodeUpstreamService    = 50200
	CodeStorageUnavailable = 50300
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Fail maps a service error onto the envelope. Messages of internal errors
// are not exposed.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		Error(c, http.StatusInternalServerError, CodeInternalServer, "internal server error")
		return
	}

	switch appErr.Kind {
	case apperr.KindValidation:
		Error(c, http.StatusBadRequest, CodeBadRequest, appErr.Message)
	case apperr.KindNotFound:
		Error(c, http.StatusNotFound, notFoundCode(appErr.Message), appErr.Message)
	case apperr.KindUpstream:
		Error(c, http.StatusBadGateway, CodeUpstreamService, apperr.Message(err))
	case apperr.KindStorageConnection:
		Error(c, http.StatusServiceUnavailable, CodeStorageUnavailable, "Database connection error. Please try again.")
	default:
		Error(c, http.StatusInternalServerError, CodeInternalServer, "internal server error")
	}
}

func notFoundCode(message string) int {
	switch message {
	case "Case not found", "Case not found or not archived":
		return CodeCaseNotFound
	case "Photo not found":
		return CodePhotoNotFound
	case "File not found", "File not found on disk":
		return CodeFileNotFound
	}
	return CodeNotFound
}
