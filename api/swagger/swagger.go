package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Complaint Desk API",
        "description": "Role-based complaint ticketing service for an academic campus",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Registration, login and token lifecycle"},
        {"name": "Complaints", "description": "Complaint filing, lifecycle and feedback"},
        {"name": "Categories", "description": "Complaint category management"},
        {"name": "Notifications", "description": "Per-user notification feed"},
        {"name": "Users", "description": "User directory and faculty roster"},
        {"name": "Stats", "description": "Dashboard aggregates"},
        {"name": "Exports", "description": "CSV and PDF reports"}
    ],
    "paths": {
        "/auth/register": {
            "post": {
                "tags": ["Auth"],
                "summary": "Register a student or faculty account",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Username or email taken"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with username and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange a refresh token for a new token pair",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Token revoked or expired"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke the caller's refresh token",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RefreshRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/complaints": {
            "get": {
                "tags": ["Complaints"],
                "summary": "List complaints visible to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "priority", "in": "query", "type": "string"},
                    {"name": "category_id", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Complaints"],
                "summary": "File a new complaint (students only)",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "title", "in": "formData", "type": "string", "required": true},
                    {"name": "description", "in": "formData", "type": "string", "required": true},
                    {"name": "category_id", "in": "formData", "type": "string"},
                    {"name": "priority", "in": "formData", "type": "string"},
                    {"name": "attachment", "in": "formData", "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Only students may file complaints"}
                }
            }
        },
        "/complaints/{complaintNo}": {
            "get": {
                "tags": ["Complaints"],
                "summary": "Fetch a complaint by ticket number",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "complaintNo", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown ticket number"}
                }
            },
            "put": {
                "tags": ["Complaints"],
                "summary": "Update a complaint; accepted fields depend on role",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "complaintNo", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateComplaintRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Role may not touch a submitted field"}
                }
            }
        },
        "/complaints/{complaintNo}/assign": {
            "post": {
                "tags": ["Complaints"],
                "summary": "Assign a complaint to a faculty member (admin only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "complaintNo", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/complaints/{complaintNo}/history": {
            "get": {
                "tags": ["Complaints"],
                "summary": "Status ledger of a complaint, newest first",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "complaintNo", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/complaints/{complaintNo}/feedback": {
            "get": {
                "tags": ["Complaints"],
                "summary": "Fetch the feedback left on a complaint",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "complaintNo", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Complaints"],
                "summary": "Rate a resolved complaint (submitter only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "complaintNo", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FeedbackRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Feedback already submitted"}
                }
            }
        },
        "/complaints/{complaintNo}/attachment": {
            "get": {
                "tags": ["Complaints"],
                "summary": "Issue a signed download link for an attachment",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "complaintNo", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Complaint has no attachment"}
                }
            }
        },
        "/attachments/download": {
            "get": {
                "tags": ["Complaints"],
                "summary": "Download an attachment using a signed token",
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/categories": {
            "get": {
                "tags": ["Categories"],
                "summary": "List complaint categories",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Categories"],
                "summary": "Create a category (admin only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CategoryRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/categories/{id}": {
            "get": {
                "tags": ["Categories"],
                "summary": "Fetch a category",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Categories"],
                "summary": "Update a category (admin only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CategoryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Categories"],
                "summary": "Delete a category (admin only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications, newest first",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/notifications/read-all": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark every notification of the caller as read",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users": {
            "get": {
                "tags": ["Users"],
                "summary": "List users (admin only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "role", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/users/faculty": {
            "get": {
                "tags": ["Users"],
                "summary": "List active faculty members for complaint assignment",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/stats/dashboard": {
            "get": {
                "tags": ["Stats"],
                "summary": "Complaint statistics scoped to the caller's role",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/complaints": {
            "get": {
                "tags": ["Exports"],
                "summary": "Export complaints as CSV or PDF (admin only)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "required": true},
                    {"name": "from_date", "in": "query", "type": "string"},
                    {"name": "to_date", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "category_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"}
                }
            }
        }
    },
    "definitions": {
        "RegisterRequest": {
            "type": "object",
            "required": ["username", "email", "password", "password_confirm", "role"],
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "password_confirm": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "faculty"]},
                "phone": {"type": "string"},
                "department": {"type": "string"},
                "age": {"type": "integer"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "RefreshRequest": {
            "type": "object",
            "required": ["refresh_token"],
            "properties": {
                "refresh_token": {"type": "string"}
            }
        },
        "UpdateComplaintRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "description": {"type": "string"},
                "category_id": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "IN_PROGRESS", "RESOLVED", "CLOSED"]},
                "priority": {"type": "string", "enum": ["LOW", "MEDIUM", "HIGH"]},
                "remarks": {"type": "string"},
                "admin_remarks": {"type": "string"}
            }
        },
        "AssignRequest": {
            "type": "object",
            "required": ["faculty_id"],
            "properties": {
                "faculty_id": {"type": "string"},
                "remarks": {"type": "string"}
            }
        },
        "FeedbackRequest": {
            "type": "object",
            "required": ["rating"],
            "properties": {
                "rating": {"type": "integer", "minimum": 1, "maximum": 5},
                "comments": {"type": "string"}
            }
        },
        "CategoryRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
