// Package controller implements the service layer: company and staff
// registration, and the two upload modes that file project documents into
// remote storage.
package controller

import (
	"context"
	"time"

	"github.com/gartstein/fieldfiles/internal/uploader/events"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
)

type EventProducer interface {
	Produce(event events.Event)
}

// Repository defines the persistence operations the services rely on.
type Repository interface {
	ListActiveCompanies(ctx context.Context) ([]models.Company, error)
	CreateCompany(ctx context.Context, company *models.NewCompany) (uint, error)
	DeactivateCompany(ctx context.Context, id uint) error
	CreateStaff(ctx context.Context, staff *models.NewStaff) (uint, string, error)
	ListActiveStaff(ctx context.Context) ([]models.Staff, error)
	GetStaffRoleAndCompany(ctx context.Context, staffID uint) (*models.StaffAssignment, error)
	CreateProject(ctx context.Context, address, postcode string) (uint, error)
	RecordFileUpload(ctx context.Context, staffID, projectID uint, filename, filePath string) (uint, error)
}

// UploadObserver receives one call per storage write.
type UploadObserver interface {
	FileStored(mode string, size int64, took time.Duration)
	UploadFailed(mode string, took time.Duration)
}

type nopObserver struct{}

func (nopObserver) FileStored(string, int64, time.Duration) {}

func (nopObserver) UploadFailed(string, time.Duration) {}
