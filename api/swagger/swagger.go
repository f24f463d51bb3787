package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Guardería Attendance API",
        "description": "Check-in and check-out of children at daycare facilities.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"},
        "JobToken": {"type": "apiKey", "name": "X-Job-Token", "in": "header"}
    },
    "tags": [
        {"name": "Authentication", "description": "Staff login"},
        {"name": "Attendance", "description": "Door check-in, check-out and presence views"},
        {"name": "Dashboard", "description": "Daily counters"},
        {"name": "Reports", "description": "Asynchronous CSV and PDF exports"},
        {"name": "Uploads", "description": "Identity document photos"},
        {"name": "Jobs", "description": "Daily closing trigger"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate staff member",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/identify": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Identify guardian by document or QR payload",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IdentifyRequest"}}
                ],
                "responses": {
                    "200": {"description": "Guardian and children with today's status", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Guardian not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/events": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Register a check-in or check-out",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/third-parties": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Register a third party and their pickup or drop-off",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/backfill": {
            "post": {
                "tags": ["Attendance"],
                "summary": "Record a full past day for a child",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Child already has events that day", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/children/{id}/status": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Status of a child on a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/absent": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Active children without events on a date",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "facilityId", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/present": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Children currently inside the facility",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "facilityId", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/history": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Recent events of a child or staff member",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "childId", "in": "query", "type": "string"},
                    {"name": "recordedBy", "in": "query", "type": "string"},
                    {"name": "days", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/third-parties": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List third parties of a facility",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "facilityId", "in": "query", "type": "string"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/uploads/third-party-ids": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload a third party identity photo",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "side", "in": "formData", "required": true, "type": "string", "enum": ["frente", "reverso"]},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Stored", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Today's counters for a facility",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "facilityId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard/coordinator": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Today's counters across every facility",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports": {
            "post": {
                "tags": ["Reports"],
                "summary": "Queue an attendance report",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ReportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Report job status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download a finished report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/close-daily-attendance": {
            "post": {
                "tags": ["Jobs"],
                "summary": "Close open entries of the day",
                "security": [{"JobToken": []}],
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "Closed", "schema": {"$ref": "#/definitions/ReconciliationResult"}},
                    "500": {"description": "Failed, nothing written", "schema": {"$ref": "#/definitions/ReconciliationResult"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["documentNumber", "password"],
            "properties": {
                "documentNumber": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "IdentifyRequest": {
            "type": "object",
            "required": ["document"],
            "properties": {
                "document": {"type": "string"},
                "facilityId": {"type": "string"}
            }
        },
        "Observations": {
            "type": "object",
            "properties": {
                "fever": {"type": "boolean"},
                "bites": {"type": "boolean"},
                "scratches": {"type": "boolean"},
                "bruises": {"type": "boolean"},
                "other": {"type": "boolean"},
                "otherText": {"type": "string"}
            }
        },
        "RegisterEventRequest": {
            "type": "object",
            "required": ["childId", "eventType"],
            "properties": {
                "childId": {"type": "string"},
                "eventType": {"type": "string", "enum": ["ENTRY", "EXIT"]},
                "guardianId": {"type": "string"},
                "thirdPartyId": {"type": "string"},
                "notes": {"type": "string"},
                "observations": {"$ref": "#/definitions/Observations"}
            }
        },
        "ReportRequest": {
            "type": "object",
            "required": ["type", "format"],
            "properties": {
                "type": {"type": "string", "enum": ["attendance_daily", "attendance_history"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "facilityId": {"type": "string"},
                "childId": {"type": "string"},
                "date": {"type": "string", "format": "date"},
                "from": {"type": "string", "format": "date"},
                "to": {"type": "string", "format": "date"}
            }
        },
        "ReconciliationResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "error": {"type": "string"},
                "procesados": {"type": "integer"},
                "fecha": {"type": "string"},
                "hora": {"type": "string"}
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
                "status": {"type": "integer"},
                "fields": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "ReportJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "status": {"type": "string", "enum": ["QUEUED", "PROCESSING", "FINISHED", "FAILED"]},
                "progress": {"type": "integer"},
                "statusUrl": {"type": "string"}
            }
        },
        "ReportStatus": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string"},
                "facilityId": {"type": "string"},
                "status": {"type": "string"},
                "progress": {"type": "integer"},
                "attempts": {"type": "integer"},
                "resultUrl": {"type": "string"},
                "error": {"type": "string"},
                "createdAt": {"type": "string", "format": "date-time"},
                "finishedAt": {"type": "string", "format": "date-time"}
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
