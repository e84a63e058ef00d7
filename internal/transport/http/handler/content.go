package handler

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"legaldesk/internal/app"
)

const defaultContentType = "application/octet-stream"

// readUpload loads the multipart file field into memory. It returns nil
// when the field is absent.
func readUpload(c *gin.Context, field string) (*app.FileUpload, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	return readFileHeader(header)
}

func readFileHeader(header *multipart.FileHeader) (*app.FileUpload, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &app.FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func contentType(content *app.Content) string {
	if content.ContentType == "" {
		return defaultContentType
	}
	return content.ContentType
}

func writeInline(c *gin.Context, content *app.Content) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, contentType(content), content.Data)
}

func writeAttachment(c *gin.Context, content *app.Content) {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": content.Name})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, contentType(content), content.Data)
}
