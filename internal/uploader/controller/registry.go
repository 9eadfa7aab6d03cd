package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	e "github.com/gartstein/fieldfiles/internal/uploader/errors"
	"github.com/gartstein/fieldfiles/internal/uploader/events"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"go.uber.org/zap"
)

// RegistryService manages companies and staff registration.
type RegistryService struct {
	repo     Repository
	producer EventProducer
	logger   *zap.Logger
}

// NewRegistryService constructs a RegistryService.
func NewRegistryService(repo Repository, producer EventProducer, logger *zap.Logger) *RegistryService {
	return &RegistryService{
		repo:     repo,
		producer: producer,
		logger:   logger.Named("registry_service"),
	}
}

// ListActiveCompanies returns active companies ordered by name.
func (s *RegistryService) ListActiveCompanies(ctx context.Context) ([]models.Company, error) {
	companies, err := s.repo.ListActiveCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	return companies, nil
}

// CreateCompany adds a company. Duplicate names yield ErrDuplicateName.
func (s *RegistryService) CreateCompany(ctx context.Context, company *models.NewCompany) (uint, error) {
	company.Name = strings.TrimSpace(company.Name)
	if company.Name == "" {
		return 0, fmt.Errorf("%w: company name is required", e.ErrInvalidInput)
	}

	id, err := s.repo.CreateCompany(ctx, company)
	if err != nil {
		if errors.Is(err, e.ErrDuplicateName) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to create company: %w", err)
	}

	s.logger.Info("Company created", zap.Uint("company_id", id), zap.String("name", company.Name))
	s.producer.Produce(events.Event{Type: events.CompanyCreated, CompanyID: id, Name: company.Name})
	return id, nil
}

// DeactivateCompany hides a company from the active list.
func (s *RegistryService) DeactivateCompany(ctx context.Context, id uint) error {
	if err := s.repo.DeactivateCompany(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to deactivate company: %w", err)
	}
	s.logger.Info("Company deactivated", zap.Uint("company_id", id))
	return nil
}

// RegisterStaff creates a staff member under an existing company and returns
// the new id with the staff member's storage folder.
func (s *RegistryService) RegisterStaff(ctx context.Context, staff *models.NewStaff) (uint, string, error) {
	staff.Name = strings.TrimSpace(staff.Name)
	staff.Role = strings.TrimSpace(staff.Role)
	if staff.Name == "" || staff.Role == "" || staff.CompanyID == 0 {
		return 0, "", fmt.Errorf("%w: name, company and role are required", e.ErrInvalidInput)
	}

	id, folderPath, err := s.repo.CreateStaff(ctx, staff)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return 0, "", err
		}
		return 0, "", fmt.Errorf("failed to register staff: %w", err)
	}

	s.logger.Info("Staff registered",
		zap.Uint("staff_id", id),
		zap.Uint("company_id", staff.CompanyID),
		zap.String("folder_path", folderPath),
	)
	s.producer.Produce(events.Event{
		Type:      events.StaffRegistered,
		StaffID:   id,
		CompanyID: staff.CompanyID,
		Name:      staff.Name,
		Path:      folderPath,
	})
	return id, folderPath, nil
}

// ListActiveStaff returns active staff ordered by name.
func (s *RegistryService) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	staff, err := s.repo.ListActiveStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}
