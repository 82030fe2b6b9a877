package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EMIS Admin Gateway",
        "description": "Session and academic-record gateway for the EMIS admin dashboards",
        "version": "0.1.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Session lifecycle"},
        {"name": "Students", "description": "Student lookup and academic records"},
        {"name": "Exports", "description": "Transcript exports"},
        {"name": "Audit", "description": "Gateway audit trail"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign in against the EMIS backend",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Sign out and blacklist the refresh token",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current signed-in user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{username}": {
            "get": {
                "tags": ["Students"],
                "summary": "Look up a student by username",
                "parameters": [
                    {"name": "username", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{username}/academic-records": {
            "get": {
                "tags": ["Students"],
                "summary": "List academic records with backend aggregates",
                "parameters": [
                    {"name": "username", "in": "path", "required": true, "type": "string"},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{username}/academic-records/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a transcript export inline",
                "parameters": [
                    {"name": "username", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["pdf", "csv"]},
                    {"name": "search", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Artifact bytes"},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{username}/academic-records/export-jobs": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a transcript export",
                "parameters": [
                    {"name": "username", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/export-jobs/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Poll export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Artifact bytes"},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "List recent audit trail entries",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["pdf", "csv"]},
                "query": {"type": "string"}
            },
            "required": ["format"]
        },
        "User": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "first_name": {"type": "string"},
                "middle_name": {"type": "string"},
                "last_name": {"type": "string"},
                "email": {"type": "string"},
                "role": {"type": "string"},
                "permissions": {"type": "array", "items": {"type": "string"}}
            }
        },
        "Student": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "full_name": {"type": "string"},
                "programme": {"type": "string"},
                "batch": {"type": "string"},
                "section": {"type": "string"},
                "semester": {"type": "integer"}
            }
        },
        "AcademicRecord": {
            "type": "object",
            "properties": {
                "course": {"$ref": "#/definitions/Course"},
                "semester": {"$ref": "#/definitions/Semester"},
                "status": {"type": "string"},
                "is_published": {"type": "boolean"},
                "is_credit": {"type": "boolean"},
                "is_regular": {"type": "boolean"},
                "grade_point": {"type": "number"},
                "letter_grade": {"type": "string"}
            }
        },
        "Course": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "acronym": {"type": "string"},
                "code": {"type": "integer"},
                "credit_hours": {"type": "number"}
            }
        },
        "Semester": {
            "type": "object",
            "properties": {
                "term_name": {"type": "string"},
                "year": {"type": "string"},
                "code": {"type": "string"}
            }
        },
        "ExportJob": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "format": {"type": "string"},
                "status": {"type": "string"},
                "filename": {"type": "string"},
                "download_url": {"type": "string"},
                "expires_at": {"type": "string"},
                "error": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
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
