package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "VESPA Activity API",
        "description": "Student activity player and staff roster console",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Activities", "description": "Activity catalogue"},
        {"name": "Wizard", "description": "Staged activity player"},
        {"name": "Roster", "description": "Staff prescription console"},
        {"name": "Achievements", "description": "Progress and unlocks"},
        {"name": "Admin", "description": "Operational endpoints"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/activities": {
            "get": {
                "tags": ["Activities"],
                "summary": "List activities",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string"},
                    {"name": "level", "in": "query", "type": "integer"},
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "sort", "in": "query", "type": "string"},
                    {"name": "order", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/activities/{id}": {
            "get": {
                "tags": ["Activities"],
                "summary": "Get activity",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students": {
            "get": {
                "tags": ["Roster"],
                "summary": "List students",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "group", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/activities": {
            "get": {
                "tags": ["Activities"],
                "summary": "Prescribed and suggested activities for a student",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/roster": {
            "get": {
                "tags": ["Roster"],
                "summary": "Prescribed and finished sets",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Roster"],
                "summary": "Prescribe an activity",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignActivityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/roster/{activityId}": {
            "delete": {
                "tags": ["Roster"],
                "summary": "Remove a prescription",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "activityId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/roster/{activityId}/complete": {
            "post": {
                "tags": ["Roster"],
                "summary": "Mark a prescribed activity finished",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "activityId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Activity not prescribed"}
                }
            },
            "delete": {
                "tags": ["Roster"],
                "summary": "Clear the finished mark",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "activityId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/achievements": {
            "get": {
                "tags": ["Achievements"],
                "summary": "Achievements a student has earned",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/progress": {
            "get": {
                "tags": ["Achievements"],
                "summary": "Progress history",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{studentId}/stats": {
            "get": {
                "tags": ["Achievements"],
                "summary": "Aggregated completion statistics",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/achievements": {
            "get": {
                "tags": ["Achievements"],
                "summary": "Achievement catalog",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/wizard/sessions": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Open a wizard session",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StartWizardRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/wizard/sessions/{sessionId}": {
            "get": {
                "tags": ["Wizard"],
                "summary": "Session state",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/wizard/sessions/{sessionId}/answers": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Record an answer edit",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AnswerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/wizard/sessions/{sessionId}/navigate": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Move to a stage",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/NavigateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Stage blocked"}
                }
            }
        },
        "/wizard/sessions/{sessionId}/next-page": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Advance one question page",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Required answers missing"}
                }
            }
        },
        "/wizard/sessions/{sessionId}/prev-page": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Go back one question page",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/wizard/sessions/{sessionId}/exit": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Save and close the session",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "502": {"description": "Remote save failed; session kept open"}
                }
            }
        },
        "/wizard/sessions/{sessionId}/complete": {
            "post": {
                "tags": ["Wizard"],
                "summary": "Complete the activity",
                "parameters": [
                    {"name": "sessionId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Required answers missing"},
                    "502": {"description": "Completion flush failed"}
                }
            }
        },
        "/admin/catalog/refresh": {
            "post": {
                "tags": ["Admin"],
                "summary": "Schedule a content catalog refresh",
                "responses": {
                    "202": {"description": "Scheduled"}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["Admin"],
                "summary": "Aggregated system metrics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Activity": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "category": {"type": "string"},
                "level": {"type": "integer"},
                "description": {"type": "string"},
                "instructions": {"type": "string"},
                "video_url": {"type": "string"},
                "slides_url": {"type": "string"},
                "pdf_url": {"type": "string"},
                "score_lower": {"type": "number"},
                "score_upper": {"type": "number"}
            }
        },
        "StartWizardRequest": {
            "type": "object",
            "properties": {
                "activity_id": {"type": "string"}
            },
            "required": ["activity_id"]
        },
        "AnswerRequest": {
            "type": "object",
            "properties": {
                "question_id": {"type": "string"},
                "value": {"type": "string"}
            },
            "required": ["question_id"]
        },
        "NavigateRequest": {
            "type": "object",
            "properties": {
                "stage": {"type": "string"}
            },
            "required": ["stage"]
        },
        "AssignActivityRequest": {
            "type": "object",
            "properties": {
                "activity_id": {"type": "string"}
            },
            "required": ["activity_id"]
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
