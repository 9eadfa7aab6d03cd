package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gartstein/fieldfiles/internal/uploader/auth"
	e "github.com/gartstein/fieldfiles/internal/uploader/errors"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/gartstein/fieldfiles/internal/uploader/storage"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegistryController lists companies and registers staff.
type RegistryController interface {
	ListActiveCompanies(ctx context.Context) ([]models.Company, error)
	RegisterStaff(ctx context.Context, staff *models.NewStaff) (uint, string, error)
}

// SubmitController files a staff member's submission.
type SubmitController interface {
	Submit(ctx context.Context, sub *models.Submission, store storage.Client) (*models.SubmitResult, error)
}

// AutoUploader stores files in the fixed location.
type AutoUploader interface {
	Upload(ctx context.Context, files []models.UploadFile) ([]string, error)
}

// Authorizer runs the storage provider's authorization-code flow.
type Authorizer interface {
	BeginAuthorization() string
	CompleteAuthorization(ctx context.Context, code string) (*auth.Authorization, error)
}

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Dependencies wires a Handler. AutoUpload may be nil, in which case /upload
// answers 503 until a fixed-location backend is configured.
type Dependencies struct {
	Registry   RegistryController
	Uploads    SubmitController
	AutoUpload AutoUploader
	Authorizer Authorizer
	Sessions   *auth.Sessions
	Storage    storage.Provider
	Health     HealthChecker
}

// Handler serves the JSON API.
type Handler struct {
	Dependencies
	logger *zap.Logger
}

// NewHandler constructs a Handler.
func NewHandler(deps Dependencies, logger *zap.Logger) *Handler {
	return &Handler{
		Dependencies: deps,
		logger:       logger.Named("http_handler"),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.health)
	r.GET("/companies", h.listCompanies)
	r.POST("/register", h.registerStaff)

	r.GET("/auth/dropbox", h.beginAuthorization)
	r.POST("/auth/dropbox/callback", h.completeAuthorization)
	r.GET("/auth/status", h.authStatus)
	r.POST("/auth/logout", h.logout)

	r.POST("/submit-files", auth.RequireSession(h.Sessions, h.logger), h.submitFiles)
	r.POST("/upload", h.autoUpload)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.Health.Ping(c.Request.Context()); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, failure(msgStoreUnhealthy))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": "ok"})
}

func (h *Handler) listCompanies(c *gin.Context) {
	companies, err := h.Registry.ListActiveCompanies(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "companies": companiesToResponse(companies)})
}

func (h *Handler) registerStaff(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", e.ErrInvalidInput, err))
		return
	}

	staff, err := registerToModel(&req)
	if err != nil {
		h.fail(c, err)
		return
	}

	id, folderPath, err := h.Registry.RegisterStaff(c.Request.Context(), staff)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "staff_id": id, "folder_path": folderPath})
}

func (h *Handler) beginAuthorization(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "authorize_url": h.Authorizer.BeginAuthorization()})
}

func (h *Handler) completeAuthorization(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, fmt.Errorf("%w: %v", e.ErrInvalidInput, err))
		return
	}

	authz, err := h.Authorizer.CompleteAuthorization(c.Request.Context(), req.AuthCode)
	if err != nil {
		h.fail(c, err)
		return
	}

	value, _, err := h.Sessions.Issue(authz)
	if err != nil {
		h.fail(c, err)
		return
	}
	http.SetCookie(c.Writer, h.Sessions.Cookie(value))
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"user_name":  authz.AccountName,
		"user_email": authz.AccountEmail,
	})
}

func (h *Handler) authStatus(c *gin.Context) {
	_, err := h.Sessions.CurrentToken(c.Request)
	c.JSON(http.StatusOK, gin.H{"success": true, "connected": err == nil})
}

func (h *Handler) logout(c *gin.Context) {
	http.SetCookie(c.Writer, h.Sessions.ClearCookie())
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) submitFiles(c *gin.Context) {
	token, ok := auth.TokenFromContext(c)
	if !ok {
		h.fail(c, e.ErrUnauthorized)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", e.ErrInvalidInput, err))
		return
	}
	files, closeFiles, err := formFiles(form)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeFiles()

	staffID, err := parseID(c.PostForm("staff_id"))
	if err != nil {
		h.fail(c, fmt.Errorf("%w: staff_id: %v", e.ErrInvalidInput, err))
		return
	}

	result, err := h.Uploads.Submit(c.Request.Context(), &models.Submission{
		StaffID:      staffID,
		Address:      c.PostForm("address"),
		Postcode:     c.PostForm("postcode"),
		DocumentType: c.PostForm("file_type"),
		Files:        files,
	}, h.Storage.ForToken(token))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     fmt.Sprintf("%d file(s) uploaded successfully", len(result.StoredFilenames)),
		"files":       result.StoredFilenames,
		"folder_path": result.FolderPath,
	})
}

func (h *Handler) autoUpload(c *gin.Context) {
	if h.AutoUpload == nil {
		c.JSON(http.StatusServiceUnavailable, failure(msgAutoUploadOff))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		h.fail(c, fmt.Errorf("%w: %v", e.ErrInvalidInput, err))
		return
	}
	files, closeFiles, err := formFiles(form)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeFiles()
	if len(files) == 0 {
		h.fail(c, fmt.Errorf("%w: no files", e.ErrInvalidInput))
		return
	}

	stored, err := h.AutoUpload.Upload(c.Request.Context(), files)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": fmt.Sprintf("%d file(s) uploaded successfully", len(stored)),
		"files":   stored,
	})
}
