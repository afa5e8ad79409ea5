package models

import "time"

// UserRole represents the two roles known to the system.
type UserRole string

const (
	RoleStaff     UserRole = "MLGOO_STAFF"
	RoleSecretary UserRole = "BARANGAY_SECRETARY"
)

// CreationStatus tracks the signup approval lifecycle of an account.
type CreationStatus string

const (
	CreationPending  CreationStatus = "PENDING"
	CreationApproved CreationStatus = "APPROVED"
	CreationRejected CreationStatus = "REJECTED"
)

// ActiveStatus tracks whether an approved account may sign in.
// It is null until the account has been approved.
type ActiveStatus string

const (
	ActiveStatusActive      ActiveStatus = "ACTIVE"
	ActiveStatusDeactivated ActiveStatus = "DEACTIVATED"
)

// User represents an application user stored in the users table.
type User struct {
	ID              string         `db:"id" json:"id"`
	Email           string         `db:"email" json:"email"`
	PasswordHash    string         `db:"password_hash" json:"-"`
	FirstName       string         `db:"first_name" json:"first_name"`
	LastName        string         `db:"last_name" json:"last_name"`
	DateOfBirth     *time.Time     `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Role            UserRole       `db:"role" json:"role"`
	CreationStatus  CreationStatus `db:"creation_status" json:"creation_status"`
	ActiveStatus    *ActiveStatus  `db:"active_status" json:"active_status,omitempty"`
	BarangayID      *int64         `db:"barangay_id" json:"barangay_id,omitempty"`
	BarangayName    *string        `db:"barangay_name" json:"barangay_name,omitempty"`
	ValidIDTypeID   *int64         `db:"valid_id_type_id" json:"valid_id_type_id,omitempty"`
	IDImageURL      *string        `db:"id_image_url" json:"id_image_url,omitempty"`
	IDImagePublicID *string        `db:"id_image_public_id" json:"-"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// FullName renders the display name used in notifications and logs.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// IsActive reports whether the account is approved and not deactivated.
func (u *User) IsActive() bool {
	return u.CreationStatus == CreationApproved &&
		u.ActiveStatus != nil && *u.ActiveStatus == ActiveStatusActive
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role           *UserRole
	CreationStatus *CreationStatus
	Search         string
	Page           int
	Limit          int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination normalises page/limit and computes the page count.
func NewPagination(page, limit, total int) *Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return &Pagination{Page: page, Limit: limit, TotalCount: total, TotalPages: pages}
}

// Actor is the typed caller context resolved once at the authorization
// boundary and passed into every workflow operation.
type Actor struct {
	UserID     string
	Role       UserRole
	BarangayID *int64
}

// IsStaff reports whether the caller holds the reviewing role.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff
}

// IsSecretary reports whether the caller is a barangay secretary.
func (a Actor) IsSecretary() bool {
	return a.Role == RoleSecretary
}
