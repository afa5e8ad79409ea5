package models

import "time"

// Log action codes recorded for sensitive operations.
const (
	LogActionLogin              = "LOGIN"
	LogActionReportSubmitted    = "REPORT_SUBMITTED"
	LogActionReportUpdated      = "REPORT_UPDATED"
	LogActionDeleteReport       = "DELETE_REPORT"
	LogActionCreateNotification = "CREATE_NOTIFICATION"
	LogActionDeleteNotification = "DELETE_NOTIFICATION"
	LogActionUserApproved       = "USER_APPROVED"
	LogActionUserRejected       = "USER_REJECTED"
	LogActionUserActivated      = "USER_ACTIVATED"
	LogActionUserDeactivated    = "USER_DEACTIVATED"
	LogActionDeleteUser         = "DELETE_USER"
	LogActionDeleteLogs         = "DELETE_LOGS"
	LogActionExportReports      = "EXPORT_REPORTS"
)

// ReportStatusLogAction maps a report status to its audit action code,
// e.g. APPROVED -> REPORT_APPROVED.
func ReportStatusLogAction(status ReportStatus) string {
	return "REPORT_" + string(status)
}

// LogEntry is an append-only record of a sensitive action.
type LogEntry struct {
	ID        string    `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	UserID    *string   `db:"user_id" json:"user_id,omitempty"`
	UserName  *string   `db:"user_name" json:"user_name,omitempty"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
	Details   string    `db:"details" json:"details"`
}

// LogFilter captures query criteria for the audit trail.
type LogFilter struct {
	Search    string
	Action    string
	UserID    *string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	Limit     int
}
