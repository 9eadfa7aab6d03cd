// Package models contains the persisted entities, configured to work using
// GORM as the ORM. Table and column names match the existing sqlite layout.
package models

import (
	"time"
)

// Company is the companies table.
type Company struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"not null;uniqueIndex"`
	ContactEmail *string
	ContactPhone *string
	Address      *string
	IsActive     bool      `gorm:"not null;default:true;index"`
	CreatedAt    time.Time `gorm:"column:created_date"`
}

// Staff is the staff table.
type Staff struct {
	ID         uint     `gorm:"primaryKey;autoIncrement"`
	Name       string   `gorm:"not null"`
	CompanyID  uint     `gorm:"not null;index"`
	Company    *Company `gorm:"constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Role       string   `gorm:"not null"`
	FolderPath string
	IsActive   bool      `gorm:"not null;default:true"`
	CreatedAt  time.Time `gorm:"column:registration_date"`
}

// TableName keeps the singular table name.
func (Staff) TableName() string { return "staff" }

// Project is the projects table.
type Project struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Address   string    `gorm:"not null"`
	Postcode  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"column:created_date"`
}

// FileUpload is the file_uploads table.
type FileUpload struct {
	ID        uint     `gorm:"primaryKey;autoIncrement"`
	StaffID   uint     `gorm:"index"`
	Staff     *Staff   `gorm:"constraint:OnDelete:RESTRICT"`
	ProjectID uint     `gorm:"index"`
	Project   *Project `gorm:"constraint:OnDelete:RESTRICT"`
	Filename  string   `gorm:"not null"`
	FilePath  string   `gorm:"not null"`
	// UploadedAt is filled by GORM on insert.
	UploadedAt time.Time `gorm:"column:upload_date;autoCreateTime"`
}

// All lists every entity in migration order.
func All() []interface{} {
	return []interface{}{&Company{}, &Staff{}, &Project{}, &FileUpload{}}
}
