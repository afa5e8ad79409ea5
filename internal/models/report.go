package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ReportStatus is the review state of a submitted report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "PENDING"
	ReportStatusApproved ReportStatus = "APPROVED"
	ReportStatusRejected ReportStatus = "REJECTED"
)

// ValidReportStatus reports whether s is a known status value.
func ValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportStatusPending, ReportStatusApproved, ReportStatusRejected:
		return true
	default:
		return false
	}
}

// Attachment references a blob held by the external media store.
type Attachment struct {
	URL         string `json:"url"`
	PublicID    string `json:"public_id"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	ContentType string `json:"content_type,omitempty"`
}

// AttachmentList is an ordered attachment list persisted as a JSONB column.
type AttachmentList []Attachment

// Value implements driver.Valuer.
func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// Scan implements sql.Scanner.
func (a *AttachmentList) Scan(src interface{}) error {
	if src == nil {
		*a = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("attachments: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, a)
}

// TotalSize sums the attachment sizes.
func (a AttachmentList) TotalSize() int64 {
	var total int64
	for _, att := range a {
		total += att.FileSize
	}
	return total
}

// PublicIDs collects the storage ids for batch deletion.
func (a AttachmentList) PublicIDs() []string {
	ids := make([]string, 0, len(a))
	for _, att := range a {
		if att.PublicID != "" {
			ids = append(ids, att.PublicID)
		}
	}
	return ids
}

// Report represents a compliance report submission.
type Report struct {
	ID            string         `db:"id" json:"id"`
	ReportType    string         `db:"report_type" json:"report_type"`
	ReportName    string         `db:"report_name" json:"report_name"`
	Status        ReportStatus   `db:"status" json:"status"`
	SubmittedDate time.Time      `db:"submitted_date" json:"submitted_date"`
	BarangayID    int64          `db:"barangay_id" json:"barangay_id"`
	BarangayName  *string        `db:"barangay_name" json:"barangay_name,omitempty"`
	SubmittedByID string         `db:"submitted_by_id" json:"submitted_by_id"`
	SubmittedBy   *string        `db:"submitted_by" json:"submitted_by,omitempty"`
	FileName      string         `db:"file_name" json:"file_name"`
	FileSize      int64          `db:"file_size" json:"file_size"`
	Comments      string         `db:"comments" json:"comments"`
	Attachments   AttachmentList `db:"attachments" json:"attachments"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updated_at"`
}

// ReportFilter captures list/filter criteria for reports.
type ReportFilter struct {
	Search     string
	ReportType string
	Status     *ReportStatus
	BarangayID *int64
	Year       *int
	Page       int
	Limit      int
}
