package controller

import (
	"context"
	"sync"
	"time"

	"github.com/gartstein/fieldfiles/internal/uploader/events"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/gartstein/fieldfiles/internal/uploader/storage"
)

// MockRepository implements the Repository interface for testing
type MockRepository struct {
	listActiveCompanies    func(context.Context) ([]models.Company, error)
	createCompany          func(context.Context, *models.NewCompany) (uint, error)
	deactivateCompany      func(context.Context, uint) error
	createStaff            func(context.Context, *models.NewStaff) (uint, string, error)
	listActiveStaff        func(context.Context) ([]models.Staff, error)
	getStaffRoleAndCompany func(context.Context, uint) (*models.StaffAssignment, error)
	createProject          func(context.Context, string, string) (uint, error)
	recordFileUpload       func(context.Context, uint, uint, string, string) (uint, error)
}

func (m *MockRepository) ListActiveCompanies(ctx context.Context) ([]models.Company, error) {
	return m.listActiveCompanies(ctx)
}

func (m *MockRepository) CreateCompany(ctx context.Context, c *models.NewCompany) (uint, error) {
	return m.createCompany(ctx, c)
}

func (m *MockRepository) DeactivateCompany(ctx context.Context, id uint) error {
	return m.deactivateCompany(ctx, id)
}

func (m *MockRepository) CreateStaff(ctx context.Context, s *models.NewStaff) (uint, string, error) {
	return m.createStaff(ctx, s)
}

func (m *MockRepository) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	return m.listActiveStaff(ctx)
}

func (m *MockRepository) GetStaffRoleAndCompany(ctx context.Context, id uint) (*models.StaffAssignment, error) {
	return m.getStaffRoleAndCompany(ctx, id)
}

func (m *MockRepository) CreateProject(ctx context.Context, address, postcode string) (uint, error) {
	return m.createProject(ctx, address, postcode)
}

func (m *MockRepository) RecordFileUpload(ctx context.Context, staffID, projectID uint, filename, filePath string) (uint, error) {
	return m.recordFileUpload(ctx, staffID, projectID, filename, filePath)
}

// MockProducer records produced events.
type MockProducer struct {
	mu     sync.Mutex
	events []events.Event
}

func (m *MockProducer) Produce(event events.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

func (m *MockProducer) Events() []events.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]events.Event(nil), m.events...)
}

// MockStorage records the paths written and fails on demand.
type MockStorage struct {
	mu     sync.Mutex
	paths  []string
	upload func(context.Context, storage.Object) error
}

func (m *MockStorage) Upload(ctx context.Context, obj storage.Object) error {
	if m.upload != nil {
		if err := m.upload(ctx, obj); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paths = append(m.paths, obj.Path)
	return nil
}

func (m *MockStorage) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

// MockObserver counts storage writes.
type MockObserver struct {
	mu       sync.Mutex
	stored   int
	failures int
}

func (m *MockObserver) FileStored(string, int64, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored++
}

func (m *MockObserver) UploadFailed(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures++
}
