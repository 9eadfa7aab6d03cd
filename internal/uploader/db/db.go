// Package db is the persistence store: four tables behind a GORM repository.
// Every call round-trips to the database; nothing is cached in process.
package db

import (
	"context"
	"errors"
	"fmt"

	dbmodels "github.com/gartstein/fieldfiles/internal/uploader/db/models"
	e "github.com/gartstein/fieldfiles/internal/uploader/errors"
	"github.com/gartstein/fieldfiles/internal/uploader/models"
	"github.com/gartstein/fieldfiles/internal/uploader/pathbuilder"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// DSN is the sqlite file path or a postgres connection string.
	DSN  string
	Seed *models.NewCompany
	// LogSQL enables GORM statement logging.
	LogSQL bool
}

func NewRepository(cfg *Config) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN))
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if cfg.LogSQL {
		gormCfg.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Driver != "postgres" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database handle: %w", err)
		}
		// sqlite allows one writer; a single connection also keeps :memory: databases shared.
		sqlDB.SetMaxOpenConns(1)
	}

	repo := &Repository{db: db}
	if err := repo.Migrate(context.Background(), cfg.Seed); err != nil {
		return nil, err
	}
	return repo, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_foreign_keys=on"
	}
	return "file:" + path + "?_foreign_keys=on"
}

// Migrate creates the schema when absent. When the companies table did not
// exist before, seed is inserted as the default company.
func (r *Repository) Migrate(ctx context.Context, seed *models.NewCompany) error {
	db := r.db.WithContext(ctx)
	fresh := !db.Migrator().HasTable(&dbmodels.Company{})

	if err := db.AutoMigrate(dbmodels.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	if fresh && seed != nil {
		if _, err := r.CreateCompany(ctx, seed); err != nil {
			return fmt.Errorf("failed to seed default company: %w", err)
		}
	}
	return nil
}

// ListActiveCompanies returns active companies ordered by name.
func (r *Repository) ListActiveCompanies(ctx context.Context) ([]models.Company, error) {
	var rows []dbmodels.Company
	result := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrPersistence, result.Error)
	}

	companies := make([]models.Company, 0, len(rows))
	for i := range rows {
		companies = append(companies, companyToModel(&rows[i]))
	}
	return companies, nil
}

// CreateCompany inserts a company. A name already in use, active or not,
// yields ErrDuplicateName and leaves the table untouched.
func (r *Repository) CreateCompany(ctx context.Context, company *models.NewCompany) (uint, error) {
	if company == nil || company.Name == "" {
		return 0, fmt.Errorf("%w: company name is required", e.ErrInvalidInput)
	}

	row := dbmodels.Company{
		Name:         company.Name,
		ContactEmail: company.ContactEmail,
		ContactPhone: company.ContactPhone,
		Address:      company.Address,
		IsActive:     true,
	}

	err := r.WithTransaction(ctx, func(repo *Repository) error {
		exists, err := repo.CompanyExistsByName(ctx, company.Name)
		if err != nil {
			return err
		}
		if exists {
			return e.ErrDuplicateName
		}
		return repo.db.WithContext(ctx).Create(&row).Error
	})
	if err != nil {
		if errors.Is(err, e.ErrDuplicateName) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, e.ErrDuplicateName
		}
		return 0, fmt.Errorf("%w: %v", e.ErrPersistence, err)
	}
	return row.ID, nil
}

// CompanyExistsByName reports whether any company, active or not, has name.
func (r *Repository) CompanyExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Company{}).
		Where("name = ?", name).
		Limit(1).
		Count(&count)
	return count > 0, result.Error
}

// GetCompany returns a company regardless of its active flag.
func (r *Repository) GetCompany(ctx context.Context, id uint) (*models.Company, error) {
	var row dbmodels.Company
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", e.ErrPersistence, result.Error)
	}
	company := companyToModel(&row)
	return &company, nil
}

// DeactivateCompany clears the active flag. It is the only mutation applied
// to existing rows.
func (r *Repository) DeactivateCompany(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Model(&dbmodels.Company{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", e.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// CreateStaff registers a staff member under an existing company and stores
// the derived folder path alongside the row.
func (r *Repository) CreateStaff(ctx context.Context, staff *models.NewStaff) (uint, string, error) {
	var (
		id         uint
		folderPath string
	)

	err := r.WithTransaction(ctx, func(repo *Repository) error {
		var company dbmodels.Company
		result := repo.db.WithContext(ctx).Select("id", "name").First(&company, "id = ?", staff.CompanyID)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return e.ErrNotFound
			}
			return result.Error
		}

		folderPath = pathbuilder.StaffFolder(staff.Role, company.Name)
		row := dbmodels.Staff{
			Name:       staff.Name,
			CompanyID:  company.ID,
			Role:       staff.Role,
			FolderPath: folderPath,
			IsActive:   true,
		}
		if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
		id = row.ID
		return nil
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return 0, "", fmt.Errorf("%w: company %d", e.ErrNotFound, staff.CompanyID)
		}
		return 0, "", fmt.Errorf("%w: %v", e.ErrPersistence, err)
	}
	return id, folderPath, nil
}

// ListActiveStaff returns active staff ordered by name.
func (r *Repository) ListActiveStaff(ctx context.Context) ([]models.Staff, error) {
	var rows []dbmodels.Staff
	result := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrPersistence, result.Error)
	}

	staff := make([]models.Staff, 0, len(rows))
	for i := range rows {
		staff = append(staff, staffToModel(&rows[i]))
	}
	return staff, nil
}

// GetStaffRoleAndCompany joins a staff row with its company. ErrNotFound is
// returned when either side of the join is missing.
func (r *Repository) GetStaffRoleAndCompany(ctx context.Context, staffID uint) (*models.StaffAssignment, error) {
	var row struct {
		Role        string
		CompanyName string
	}
	result := r.db.WithContext(ctx).
		Table("staff").
		Select("staff.role AS role, companies.name AS company_name").
		Joins("JOIN companies ON companies.id = staff.company_id").
		Where("staff.id = ?", staffID).
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrPersistence, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: staff %d", e.ErrNotFound, staffID)
	}
	return &models.StaffAssignment{Role: row.Role, CompanyName: row.CompanyName}, nil
}

// CreateProject always inserts a new project row.
func (r *Repository) CreateProject(ctx context.Context, address, postcode string) (uint, error) {
	row := dbmodels.Project{Address: address, Postcode: postcode}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", e.ErrPersistence, err)
	}
	return row.ID, nil
}

// RecordFileUpload appends to the upload audit log.
func (r *Repository) RecordFileUpload(ctx context.Context, staffID, projectID uint, filename, filePath string) (uint, error) {
	row := dbmodels.FileUpload{
		StaffID:   staffID,
		ProjectID: projectID,
		Filename:  filename,
		FilePath:  filePath,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", e.ErrPersistence, err)
	}
	return row.ID, nil
}

// ListFileUploads returns the audit rows of a staff member, oldest first.
func (r *Repository) ListFileUploads(ctx context.Context, staffID uint) ([]models.FileUpload, error) {
	var rows []dbmodels.FileUpload
	result := r.db.WithContext(ctx).
		Where("staff_id = ?", staffID).
		Order("id ASC").
		Find(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %v", e.ErrPersistence, result.Error)
	}

	uploads := make([]models.FileUpload, 0, len(rows))
	for _, row := range rows {
		uploads = append(uploads, models.FileUpload{
			ID:         row.ID,
			StaffID:    row.StaffID,
			ProjectID:  row.ProjectID,
			Filename:   row.Filename,
			FilePath:   row.FilePath,
			UploadedAt: row.UploadedAt,
		})
	}
	return uploads, nil
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Ping checks the database connection.
func (r *Repository) Ping(ctx context.Context) error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func companyToModel(row *dbmodels.Company) models.Company {
	return models.Company{
		ID:           row.ID,
		Name:         row.Name,
		ContactEmail: row.ContactEmail,
		ContactPhone: row.ContactPhone,
		Address:      row.Address,
		IsActive:     row.IsActive,
		CreatedAt:    row.CreatedAt,
	}
}

func staffToModel(row *dbmodels.Staff) models.Staff {
	return models.Staff{
		ID:         row.ID,
		Name:       row.Name,
		CompanyID:  row.CompanyID,
		Role:       row.Role,
		FolderPath: row.FolderPath,
		IsActive:   row.IsActive,
		CreatedAt:  row.CreatedAt,
	}
}
