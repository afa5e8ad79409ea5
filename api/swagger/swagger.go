package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Barangay Records API",
        "description": "Online record management backend for barangay compliance reports",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Signup, OTP verification, and login"},
        {"name": "Taxonomy", "description": "Barangay and report type catalogs"},
        {"name": "Reports", "description": "Report submission and review workflow"},
        {"name": "Notifications", "description": "Broadcast notifications"},
        {"name": "Logs", "description": "Audit trail"},
        {"name": "Users", "description": "Staff account administration"}
    ],
    "paths": {
        "/auth/otp/request": {
            "post": {
                "tags": ["Auth"],
                "summary": "Request signup verification code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EmailRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/otp/verify": {
            "post": {
                "tags": ["Auth"],
                "summary": "Verify a one-time code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/VerifyOTPRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid or expired code"}}
            }
        },
        "/auth/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a new account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SignupRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Email already registered"}}
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Invalid credentials"}, "403": {"description": "Account pending, rejected, or deactivated"}}
            }
        },
        "/auth/password/forgot": {
            "post": {
                "tags": ["Auth"],
                "summary": "Request a password reset code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EmailRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/password/reset": {
            "post": {
                "tags": ["Auth"],
                "summary": "Reset a password with a verification code",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ResetPasswordRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid code"}}
            }
        },
        "/barangays": {
            "get": {
                "tags": ["Taxonomy"],
                "summary": "List barangays",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/report-types": {
            "get": {
                "tags": ["Taxonomy"],
                "summary": "List report types",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/reports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List reports",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "report_type", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "barangay_id", "in": "query", "type": "integer"},
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Submit a report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReportRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failure"}, "403": {"description": "Secretary role required"}}
            }
        },
        "/reports/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export the report listing as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File download"}, "403": {"description": "Staff role required"}}
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Get report detail",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            },
            "put": {
                "tags": ["Reports"],
                "summary": "Edit a pending report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateReportRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Not the submitter or no longer pending"}}
            },
            "delete": {
                "tags": ["Reports"],
                "summary": "Delete a report",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}, "403": {"description": "Forbidden"}}
            }
        },
        "/reports/{id}/status": {
            "patch": {
                "tags": ["Reports"],
                "summary": "Apply a review decision",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateReportStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown status"}, "403": {"description": "Staff role required"}}
            }
        },
        "/reports/barangay/{barangayId}": {
            "get": {
                "tags": ["Reports"],
                "summary": "List reports for one barangay",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "barangayId", "in": "path", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Secretary scoped to own barangay"}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List notifications for the caller",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["Notifications"],
                "summary": "Send a notification",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateNotificationRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Staff role required"}}
            }
        },
        "/notifications/recipients": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List eligible recipients",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/notifications/{id}/read": {
            "patch": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/notifications/{id}": {
            "delete": {
                "tags": ["Notifications"],
                "summary": "Delete a notification",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}, "403": {"description": "Staff role required"}}
            }
        },
        "/logs": {
            "get": {
                "tags": ["Logs"],
                "summary": "Query the audit trail",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "action", "in": "query", "type": "string"},
                    {"name": "user_id", "in": "query", "type": "string"},
                    {"name": "start_date", "in": "query", "type": "string"},
                    {"name": "end_date", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["Logs"],
                "summary": "Delete audit entries in a date range",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkRemoveRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad date range"}, "403": {"description": "Staff role required"}}
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List accounts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "creation_status", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Staff role required"}}
            }
        },
        "/users/{id}/status": {
            "patch": {
                "tags": ["Users"],
                "summary": "Apply an account decision",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateUserStatusRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/users/{id}": {
            "delete": {
                "tags": ["Users"],
                "summary": "Delete an account",
                "security": [{"BearerAuth": []}],
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}, "404": {"description": "Not found"}}
            }
        }
    },
    "definitions": {
        "EmailRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string"}}
        },
        "VerifyOTPRequest": {
            "type": "object",
            "required": ["email", "code"],
            "properties": {
                "email": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "SignupRequest": {
            "type": "object",
            "required": ["email", "password", "first_name", "last_name", "role"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "first_name": {"type": "string"},
                "last_name": {"type": "string"},
                "date_of_birth": {"type": "string"},
                "role": {"type": "string", "enum": ["MLGOO_STAFF", "BARANGAY_SECRETARY"]},
                "barangay_id": {"type": "integer"},
                "valid_id_type_id": {"type": "integer"},
                "id_image_url": {"type": "string"},
                "id_image_public_id": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "ResetPasswordRequest": {
            "type": "object",
            "required": ["email", "code", "new_password"],
            "properties": {
                "email": {"type": "string"},
                "code": {"type": "string"},
                "new_password": {"type": "string"}
            }
        },
        "AttachmentInput": {
            "type": "object",
            "required": ["url", "public_id", "file_name"],
            "properties": {
                "url": {"type": "string"},
                "public_id": {"type": "string"},
                "file_name": {"type": "string"},
                "file_size": {"type": "integer"},
                "content_type": {"type": "string"}
            }
        },
        "CreateReportRequest": {
            "type": "object",
            "required": ["report_type", "report_name", "attachments"],
            "properties": {
                "report_type": {"type": "string"},
                "report_name": {"type": "string"},
                "comments": {"type": "string"},
                "attachments": {"type": "array", "items": {"$ref": "#/definitions/AttachmentInput"}}
            }
        },
        "UpdateReportRequest": {
            "type": "object",
            "properties": {
                "report_name": {"type": "string"},
                "comments": {"type": "string"},
                "attachments": {"type": "array", "items": {"$ref": "#/definitions/AttachmentInput"}}
            }
        },
        "UpdateReportStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED"]},
                "comments": {"type": "string"}
            }
        },
        "CreateNotificationRequest": {
            "type": "object",
            "required": ["title", "message", "type", "priority", "user_ids"],
            "properties": {
                "title": {"type": "string"},
                "message": {"type": "string"},
                "type": {"type": "string"},
                "priority": {"type": "string"},
                "user_ids": {"type": "array", "items": {"type": "string"}}
            }
        },
        "BulkRemoveRequest": {
            "type": "object",
            "required": ["start_date", "end_date"],
            "properties": {
                "start_date": {"type": "string"},
                "end_date": {"type": "string"}
            }
        },
        "UpdateUserStatusRequest": {
            "type": "object",
            "required": ["action"],
            "properties": {
                "action": {"type": "string", "enum": ["approve", "reject", "activate", "deactivate"]}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
