package models

// Barangay is a tenant/scope unit for secretaries and their reports.
type Barangay struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// ReportType is a catalog entry used to validate and label reports.
type ReportType struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	ShortCode string `db:"short_code" json:"short_code"`
}
