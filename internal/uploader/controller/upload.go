package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/fieldfiles/internal/uploader/errors"
	"github.com/gartstein/fieldfiles/internal/uploader/events"
	"github.com/gartstein/fieldfiles/internal/uploader/metrics"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/gartstein/fieldfiles/internal/uploader/pathbuilder"
	"github.com/gartstein/fieldfiles/internal/uploader/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UploadService files project documents into the staff member's folder tree
// and records every stored file in the audit log.
type UploadService struct {
	repo     Repository
	producer EventProducer
	observer UploadObserver
	timeout  time.Duration
	logger   *zap.Logger
}

// NewUploadService constructs an UploadService. Each storage write is bounded
// by timeout. observer may be nil.
func NewUploadService(
	repo Repository,
	producer EventProducer,
	observer UploadObserver,
	timeout time.Duration,
	logger *zap.Logger,
) *UploadService {
	if observer == nil {
		observer = nopObserver{}
	}
	return &UploadService{
		repo:     repo,
		producer: producer,
		observer: observer,
		timeout:  timeout,
		logger:   logger.Named("upload_service"),
	}
}

// Submit stores every file of sub under
// /<Role>/<Company>/<Address>/<DocumentType>/ using store, which must carry
// the caller's own credential.
//
// Files are written in input order. The first failed write aborts the batch
// with ErrUpload: files stored before it stay in storage and keep their audit
// rows, later files are neither written nor recorded.
func (s *UploadService) Submit(ctx context.Context, sub *models.Submission, store storage.Client) (*models.SubmitResult, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: no storage credential", e.ErrUnauthorized)
	}
	if err := validateSubmission(sub); err != nil {
		return nil, err
	}

	projectID, err := s.repo.CreateProject(ctx, sub.Address, sub.Postcode)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	assignment, err := s.repo.GetStaffRoleAndCompany(ctx, sub.StaffID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to look up staff: %w", err)
	}

	folder := pathbuilder.UploadFolder(assignment.Role, assignment.CompanyName, sub.Address, sub.DocumentType)
	logger := s.logger.With(
		zap.Uint("staff_id", sub.StaffID),
		zap.Uint("project_id", projectID),
		zap.String("folder_path", folder),
	)

	stored := make([]string, 0, len(sub.Files))
	for _, f := range sub.Files {
		fullPath := pathbuilder.FilePath(folder, f.Name)
		if err := s.write(ctx, store, metrics.ModeSubmit, storage.Object{
			Path:        fullPath,
			Content:     f.Content,
			Size:        f.Size,
			ContentType: f.ContentType,
		}); err != nil {
			logger.Error("Upload failed",
				zap.String("filename", f.Name),
				zap.Int("stored_before_failure", len(stored)),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %s: %w", e.ErrUpload, f.Name, err)
		}

		if _, err := s.repo.RecordFileUpload(ctx, sub.StaffID, projectID, f.Name, fullPath); err != nil {
			logger.Error("Failed to record upload", zap.String("filename", f.Name), zap.Error(err))
			return nil, fmt.Errorf("failed to record %s: %w", f.Name, err)
		}

		s.producer.Produce(events.Event{
			Type:      events.FileUploaded,
			StaffID:   sub.StaffID,
			ProjectID: projectID,
			Name:      f.Name,
			Path:      fullPath,
		})
		stored = append(stored, f.Name)
	}

	logger.Info("Submission stored", zap.Int("files", len(stored)))
	return &models.SubmitResult{
		ProjectID:       projectID,
		FolderPath:      folder,
		StoredFilenames: stored,
	}, nil
}

func validateSubmission(sub *models.Submission) error {
	if sub == nil {
		return fmt.Errorf("%w: empty submission", e.ErrInvalidInput)
	}
	sub.Address = strings.TrimSpace(sub.Address)
	sub.Postcode = strings.TrimSpace(sub.Postcode)
	sub.DocumentType = strings.TrimSpace(sub.DocumentType)
	if sub.StaffID == 0 || sub.Address == "" || sub.Postcode == "" || sub.DocumentType == "" || len(sub.Files) == 0 {
		return fmt.Errorf("%w: all fields are required", e.ErrInvalidInput)
	}
	for _, f := range sub.Files {
		if f.Name == "" || f.Content == nil {
			return fmt.Errorf("%w: every file needs a name", e.ErrInvalidInput)
		}
	}
	return nil
}

func (s *UploadService) write(ctx context.Context, store storage.Client, mode string, obj storage.Object) error {
	return writeObject(ctx, store, s.observer, s.timeout, mode, obj)
}

func writeObject(
	ctx context.Context,
	store storage.Client,
	observer UploadObserver,
	timeout time.Duration,
	mode string,
	obj storage.Object,
) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := store.Upload(ctx, obj)
	took := time.Since(start)
	if err != nil {
		observer.UploadFailed(mode, took)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("storage write timed out after %s", timeout)
		}
		return err
	}
	observer.FileStored(mode, obj.Size, took)
	return nil
}

// AutoUploadService writes files into one fixed folder with a shared
// credential. It keeps no database records.
type AutoUploadService struct {
	store       storage.Client
	folder      string
	concurrency int
	observer    UploadObserver
	timeout     time.Duration
	logger      *zap.Logger
}

// NewAutoUploadService constructs an AutoUploadService writing to folder.
func NewAutoUploadService(
	store storage.Client,
	folder string,
	concurrency int,
	observer UploadObserver,
	timeout time.Duration,
	logger *zap.Logger,
) *AutoUploadService {
	if observer == nil {
		observer = nopObserver{}
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &AutoUploadService{
		store:       store,
		folder:      strings.TrimSuffix(folder, "/"),
		concurrency: concurrency,
		observer:    observer,
		timeout:     timeout,
		logger:      logger.Named("auto_upload_service"),
	}
}

// Upload writes files to <folder>/<filename> in parallel. Any failed write
// fails the whole call with ErrUpload; the returned names keep input order.
func (s *AutoUploadService) Upload(ctx context.Context, files []models.UploadFile) ([]string, error) {
	for _, f := range files {
		if f.Name == "" || f.Content == nil {
			return nil, fmt.Errorf("%w: every file needs a name", e.ErrInvalidInput)
		}
	}

	stored := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range files {
		g.Go(func() error {
			path := pathbuilder.FilePath(s.folder, f.Name)
			err := writeObject(gctx, s.store, s.observer, s.timeout, metrics.ModeAuto, storage.Object{
				Path:        path,
				Content:     f.Content,
				Size:        f.Size,
				ContentType: f.ContentType,
			})
			if err != nil {
				s.logger.Error("Upload failed", zap.String("path", path), zap.Error(err))
				return fmt.Errorf("%w: %s: %w", e.ErrUpload, f.Name, err)
			}
			stored[i] = f.Name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Files stored", zap.String("folder", s.folder), zap.Int("files", len(stored)))
	return stored, nil
}
