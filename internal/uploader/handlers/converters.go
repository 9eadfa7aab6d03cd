package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	e "github.com/gartstein/fieldfiles/internal/uploader/errors"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Public failure messages. Wrapped error text is logged, never returned.
const (
	msgInvalidInput   = "Missing or invalid fields"
	msgInvalidGrant   = "Invalid or expired authorization code"
	msgUnauthorized   = "Storage account not connected. Please authorize first."
	msgNotFound       = "Staff member or company not found"
	msgConflict       = "A record with this name already exists"
	msgUploadFailed   = "File upload failed"
	msgInternal       = "Internal server error"
	msgStoreUnhealthy = "Database unavailable"
	msgAutoUploadOff  = "Fixed-location upload is not configured"
	msgNoRoute        = "Route not found"
	msgNoMethod       = "Method not allowed"
)

type registerRequest struct {
	Name      string      `json:"name"`
	CompanyID json.Number `json:"company_id"`
	Role      string      `json:"role"`
}

type callbackRequest struct {
	AuthCode string `json:"auth_code"`
}

type companyResponse struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func failure(message string) gin.H {
	return gin.H{"success": false, "message": message}
}

// registerToModel converts a register request into a NewStaff. company_id
// may be a JSON number or a numeric string.
func registerToModel(req *registerRequest) (*models.NewStaff, error) {
	companyID, err := parseID(req.CompanyID.String())
	if err != nil {
		return nil, fmt.Errorf("%w: company_id: %v", e.ErrInvalidInput, err)
	}
	return &models.NewStaff{
		Name:      req.Name,
		CompanyID: companyID,
		Role:      req.Role,
	}, nil
}

func companiesToResponse(companies []models.Company) []companyResponse {
	resp := make([]companyResponse, 0, len(companies))
	for _, c := range companies {
		resp = append(resp, companyResponse{ID: c.ID, Name: c.Name})
	}
	return resp
}

// parseID parses a positive integer id.
func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("not a valid id: %q", raw)
	}
	if id == 0 {
		return 0, errors.New("id must be positive")
	}
	return uint(id), nil
}

// formFiles opens every file of the "files" (or "files[]") field. The caller
// must call the returned close func once the files have been consumed.
func formFiles(form *multipart.Form) ([]models.UploadFile, func(), error) {
	headers := append([]*multipart.FileHeader{}, form.File["files"]...)
	headers = append(headers, form.File["files[]"]...)

	files := make([]models.UploadFile, 0, len(headers))
	closers := make([]io.Closer, 0, len(headers))
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("%w: unreadable file %q", e.ErrInvalidInput, fh.Filename)
		}
		closers = append(closers, f)
		files = append(files, models.UploadFile{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: fh.Header.Get("Content-Type"),
			Content:     f,
		})
	}
	return files, closeAll, nil
}

// mapServiceError maps domain or repository errors to a status code and a
// public message.
func (h *Handler) mapServiceError(c *gin.Context, err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, msgInvalidInput
	case errors.Is(err, e.ErrInvalidGrant):
		return http.StatusBadRequest, msgInvalidGrant
	case errors.Is(err, e.ErrUnauthorized):
		return http.StatusUnauthorized, msgUnauthorized
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, e.ErrDuplicateName):
		return http.StatusConflict, msgConflict
	case errors.Is(err, e.ErrUpload):
		h.logger.Error("Upload failed", zap.String(requestIDKey, c.GetString(requestIDKey)), zap.Error(err))
		return http.StatusInternalServerError, msgUploadFailed
	default:
		h.logger.Error("Internal server error", zap.String(requestIDKey, c.GetString(requestIDKey)), zap.Error(err))
		return http.StatusInternalServerError, msgInternal
	}
}

// fail writes the failure envelope for err.
func (h *Handler) fail(c *gin.Context, err error) {
	status, message := h.mapServiceError(c, err)
	if status < http.StatusInternalServerError {
		h.logger.Debug("Request rejected",
			zap.String("path", c.FullPath()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	c.JSON(status, failure(message))
}
