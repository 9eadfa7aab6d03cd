// Package models defines the domain models shared by the store, the upload
// services and the HTTP handlers.
package models

import (
	"io"
	"time"
)

// Company is a contractor that staff members work for.
type Company struct {
	// ID is the surrogate key.
	ID uint
	// Name is unique across all companies, active or not.
	Name         string
	ContactEmail *string
	ContactPhone *string
	Address      *string
	// IsActive is false once the company has been deactivated.
	IsActive  bool
	CreatedAt time.Time
}

// NewCompany holds the input for creating a Company.
type NewCompany struct {
	Name         string
	ContactEmail *string
	ContactPhone *string
	Address      *string
}

// Staff is a registered field worker.
type Staff struct {
	ID        uint
	Name      string
	CompanyID uint
	// Role is a free-text label such as "Surveyor".
	Role string
	// FolderPath is derived from Role and the company name at registration.
	FolderPath string
	IsActive   bool
	CreatedAt  time.Time
}

// NewStaff holds the input for registering a Staff member.
type NewStaff struct {
	Name      string
	CompanyID uint
	Role      string
}

// Project is a site address that files are submitted for.
type Project struct {
	ID        uint
	Address   string
	Postcode  string
	CreatedAt time.Time
}

// FileUpload is one row of the append-only upload audit log.
type FileUpload struct {
	ID         uint
	StaffID    uint
	ProjectID  uint
	Filename   string
	FilePath   string
	UploadedAt time.Time
}

// StaffAssignment is the role and company a staff member files under.
type StaffAssignment struct {
	Role        string
	CompanyName string
}

// UploadFile is one file of a batch as received from the client.
type UploadFile struct {
	// Name is taken verbatim from the client.
	Name        string
	Size        int64
	ContentType string
	Content     io.Reader
}

// Submission is a batch of project files from one staff member.
type Submission struct {
	StaffID      uint
	Address      string
	Postcode     string
	DocumentType string
	Files        []UploadFile
}

// SubmitResult describes a fully stored Submission.
type SubmitResult struct {
	ProjectID       uint
	FolderPath      string
	StoredFilenames []string
}
