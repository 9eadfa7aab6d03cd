package handlers

import (
	"context"
	"sync"

	"github.com/gartstein/fieldfiles/internal/uploader/auth"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/gartstein/fieldfiles/internal/uploader/storage"
)

type mockRegistry struct {
	listActiveCompanies func(context.Context) ([]models.Company, error)
	registerStaff       func(context.Context, *models.NewStaff) (uint, string, error)
}

func (m *mockRegistry) ListActiveCompanies(ctx context.Context) ([]models.Company, error) {
	return m.listActiveCompanies(ctx)
}

func (m *mockRegistry) RegisterStaff(ctx context.Context, staff *models.NewStaff) (uint, string, error) {
	return m.registerStaff(ctx, staff)
}

type mockSubmitter struct {
	submit func(context.Context, *models.Submission, storage.Client) (*models.SubmitResult, error)
}

func (m *mockSubmitter) Submit(ctx context.Context, sub *models.Submission, store storage.Client) (*models.SubmitResult, error) {
	return m.submit(ctx, sub, store)
}

type mockAutoUploader struct {
	upload func(context.Context, []models.UploadFile) ([]string, error)
}

func (m *mockAutoUploader) Upload(ctx context.Context, files []models.UploadFile) ([]string, error) {
	return m.upload(ctx, files)
}

type mockAuthorizer struct {
	url      string
	complete func(context.Context, string) (*auth.Authorization, error)
}

func (m *mockAuthorizer) BeginAuthorization() string { return m.url }

func (m *mockAuthorizer) CompleteAuthorization(ctx context.Context, code string) (*auth.Authorization, error) {
	return m.complete(ctx, code)
}

type mockHealth struct {
	err error
}

func (m *mockHealth) Ping(context.Context) error { return m.err }

// memoryStorage keeps written objects in memory, per token.
type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]string)}
}

func (m *memoryStorage) ForToken(token string) storage.Client {
	return &memoryClient{parent: m, token: token}
}

func (m *memoryStorage) Paths(token string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.objects[token]...)
}

type memoryClient struct {
	parent *memoryStorage
	token  string
}

func (c *memoryClient) Upload(_ context.Context, obj storage.Object) error {
	c.parent.mu.Lock()
	defer c.parent.mu.Unlock()
	c.parent.objects[c.token] = append(c.parent.objects[c.token], obj.Path)
	return nil
}
