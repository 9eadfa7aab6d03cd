package controller

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	e "github.com/gartstein/fieldfiles/internal/uploader/errors"
	"github.com/gartstein/fieldfiles/internal/uploader/events"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/gartstein/fieldfiles/internal/uploader/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordedUpload struct {
	filename string
	path     string
}

func newSubmitRepo(recorded *[]recordedUpload) *MockRepository {
	return &MockRepository{
		createProject: func(_ context.Context, _, _ string) (uint, error) {
			return 7, nil
		},
		getStaffRoleAndCompany: func(_ context.Context, id uint) (*models.StaffAssignment, error) {
			if id != 1 {
				return nil, e.ErrNotFound
			}
			return &models.StaffAssignment{Role: "Surveyor", CompanyName: "Emerald Green Energy"}, nil
		},
		recordFileUpload: func(_ context.Context, _, _ uint, filename, filePath string) (uint, error) {
			*recorded = append(*recorded, recordedUpload{filename: filename, path: filePath})
			return uint(len(*recorded)), nil
		},
	}
}

func file(name string) models.UploadFile {
	return models.UploadFile{Name: name, Size: 3, Content: strings.NewReader("abc")}
}

func submission(files ...models.UploadFile) *models.Submission {
	return &models.Submission{
		StaffID:      1,
		Address:      " 1 Main St ",
		Postcode:     "AB1 2CD",
		DocumentType: "Documents",
		Files:        files,
	}
}

func TestUploadService_Submit(t *testing.T) {
	var recorded []recordedUpload
	producer := &MockProducer{}
	observer := &MockObserver{}
	store := &MockStorage{}
	service := NewUploadService(newSubmitRepo(&recorded), producer, observer, time.Second, zaptest.NewLogger(t))

	result, err := service.Submit(context.Background(), submission(file("a.pdf"), file("b.jpg")), store)

	require.NoError(t, err)
	assert.Equal(t, uint(7), result.ProjectID)
	assert.Equal(t, "/Surveyor/Emerald_Green_Energy/1_Main_St/Documents", result.FolderPath)
	assert.Equal(t, []string{"a.pdf", "b.jpg"}, result.StoredFilenames)
	assert.Equal(t, []string{
		"/Surveyor/Emerald_Green_Energy/1_Main_St/Documents/a.pdf",
		"/Surveyor/Emerald_Green_Energy/1_Main_St/Documents/b.jpg",
	}, store.Paths())
	require.Len(t, recorded, 2)
	assert.Equal(t, "a.pdf", recorded[0].filename)
	assert.Equal(t, store.Paths()[1], recorded[1].path)
	assert.Equal(t, 2, observer.stored)

	evts := producer.Events()
	require.Len(t, evts, 2)
	assert.Equal(t, events.FileUploaded, evts[0].Type)
	assert.Equal(t, uint(7), evts[0].ProjectID)
}

func TestUploadService_SubmitValidation(t *testing.T) {
	tests := []struct {
		name string
		sub  *models.Submission
	}{
		{name: "nil submission", sub: nil},
		{name: "no files", sub: submission()},
		{name: "blank address", sub: func() *models.Submission {
			s := submission(file("a.pdf"))
			s.Address = "  "
			return s
		}()},
		{name: "missing staff", sub: func() *models.Submission {
			s := submission(file("a.pdf"))
			s.StaffID = 0
			return s
		}()},
		{name: "missing document type", sub: func() *models.Submission {
			s := submission(file("a.pdf"))
			s.DocumentType = ""
			return s
		}()},
		{name: "unnamed file", sub: submission(models.UploadFile{Content: strings.NewReader("x")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepository{
				createProject: func(_ context.Context, _, _ string) (uint, error) {
					t.Fatal("project must not be created for invalid input")
					return 0, nil
				},
			}
			store := &MockStorage{}
			service := NewUploadService(repo, &MockProducer{}, nil, time.Second, zaptest.NewLogger(t))

			_, err := service.Submit(context.Background(), tt.sub, store)

			assert.ErrorIs(t, err, e.ErrInvalidInput)
			assert.Empty(t, store.Paths())
		})
	}
}

func TestUploadService_SubmitWithoutCredential(t *testing.T) {
	var recorded []recordedUpload
	repo := newSubmitRepo(&recorded)
	var projects int32
	repo.createProject = func(_ context.Context, _, _ string) (uint, error) {
		atomic.AddInt32(&projects, 1)
		return 1, nil
	}
	service := NewUploadService(repo, &MockProducer{}, nil, time.Second, zaptest.NewLogger(t))

	_, err := service.Submit(context.Background(), submission(file("a.pdf")), nil)

	assert.ErrorIs(t, err, e.ErrUnauthorized)
	assert.Zero(t, atomic.LoadInt32(&projects))
	assert.Empty(t, recorded)
}

func TestUploadService_SubmitUnknownStaff(t *testing.T) {
	var recorded []recordedUpload
	store := &MockStorage{}
	service := NewUploadService(newSubmitRepo(&recorded), &MockProducer{}, nil, time.Second, zaptest.NewLogger(t))

	sub := submission(file("a.pdf"))
	sub.StaffID = 42
	_, err := service.Submit(context.Background(), sub, store)

	assert.ErrorIs(t, err, e.ErrNotFound)
	assert.Empty(t, store.Paths())
	assert.Empty(t, recorded)
}

func TestUploadService_SubmitPartialFailure(t *testing.T) {
	var recorded []recordedUpload
	producer := &MockProducer{}
	observer := &MockObserver{}
	store := &MockStorage{
		upload: func(_ context.Context, obj storage.Object) error {
			if strings.HasSuffix(obj.Path, "/b.jpg") {
				return errors.New("insufficient space")
			}
			return nil
		},
	}
	service := NewUploadService(newSubmitRepo(&recorded), producer, observer, time.Second, zaptest.NewLogger(t))

	_, err := service.Submit(context.Background(), submission(file("a.pdf"), file("b.jpg"), file("c.png")), store)

	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrUpload)
	assert.Contains(t, err.Error(), "b.jpg")
	assert.Contains(t, err.Error(), "insufficient space")

	// a.pdf stays stored and recorded, c.png is never attempted.
	assert.Equal(t, []string{"/Surveyor/Emerald_Green_Energy/1_Main_St/Documents/a.pdf"}, store.Paths())
	require.Len(t, recorded, 1)
	assert.Equal(t, "a.pdf", recorded[0].filename)
	assert.Len(t, producer.Events(), 1)
	assert.Equal(t, 1, observer.stored)
	assert.Equal(t, 1, observer.failures)
}

func TestUploadService_SubmitRecordFailure(t *testing.T) {
	var recorded []recordedUpload
	repo := newSubmitRepo(&recorded)
	repo.recordFileUpload = func(_ context.Context, _, _ uint, _, _ string) (uint, error) {
		return 0, e.ErrPersistence
	}
	service := NewUploadService(repo, &MockProducer{}, nil, time.Second, zaptest.NewLogger(t))

	_, err := service.Submit(context.Background(), submission(file("a.pdf")), &MockStorage{})

	assert.ErrorIs(t, err, e.ErrPersistence)
}

func TestUploadService_SubmitTimeout(t *testing.T) {
	var recorded []recordedUpload
	store := &MockStorage{
		upload: func(ctx context.Context, _ storage.Object) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	service := NewUploadService(newSubmitRepo(&recorded), &MockProducer{}, nil, 20*time.Millisecond, zaptest.NewLogger(t))

	_, err := service.Submit(context.Background(), submission(file("a.pdf")), store)

	assert.ErrorIs(t, err, e.ErrUpload)
	assert.Contains(t, err.Error(), "timed out")
	assert.Empty(t, recorded)
}

func TestAutoUploadService_Upload(t *testing.T) {
	store := &MockStorage{
		upload: func(_ context.Context, obj storage.Object) error {
			// Finish out of order to check the result keeps input order.
			if strings.HasSuffix(obj.Path, "/first.txt") {
				time.Sleep(10 * time.Millisecond)
			}
			return nil
		},
	}
	observer := &MockObserver{}
	service := NewAutoUploadService(store, "/AutoFolder/", 4, observer, time.Second, zaptest.NewLogger(t))

	stored, err := service.Upload(context.Background(), []models.UploadFile{file("first.txt"), file("second.txt"), file("third.txt")})

	require.NoError(t, err)
	assert.Equal(t, []string{"first.txt", "second.txt", "third.txt"}, stored)
	assert.ElementsMatch(t, []string{
		"/AutoFolder/first.txt",
		"/AutoFolder/second.txt",
		"/AutoFolder/third.txt",
	}, store.Paths())
	assert.Equal(t, 3, observer.stored)
}

func TestAutoUploadService_UploadFailure(t *testing.T) {
	store := &MockStorage{
		upload: func(_ context.Context, obj storage.Object) error {
			if strings.HasSuffix(obj.Path, "/bad.txt") {
				return errors.New("rejected")
			}
			return nil
		},
	}
	service := NewAutoUploadService(store, "/AutoFolder", 0, nil, time.Second, zaptest.NewLogger(t))

	_, err := service.Upload(context.Background(), []models.UploadFile{file("good.txt"), file("bad.txt")})

	assert.ErrorIs(t, err, e.ErrUpload)
	assert.Contains(t, err.Error(), "bad.txt")
}

func TestAutoUploadService_UploadInvalidFile(t *testing.T) {
	store := &MockStorage{}
	service := NewAutoUploadService(store, "/AutoFolder", 2, nil, time.Second, zaptest.NewLogger(t))

	_, err := service.Upload(context.Background(), []models.UploadFile{file("ok.txt"), {Name: "", Content: strings.NewReader("x")}})

	assert.ErrorIs(t, err, e.ErrInvalidInput)
	assert.Empty(t, store.Paths())
}
