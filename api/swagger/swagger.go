package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Weekly teaching timetable generation and derived exam scheduling",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Timetables", "description": "Generation runs and version lifecycle"},
        {"name": "Exports", "description": "CSV/PDF artifact rendering"}
    ],
    "paths": {
        "/timetables/generate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Generate a teaching timetable for a term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Generation already in progress"},
                    "422": {"description": "Invalid grid or hard constraint"}
                }
            }
        },
        "/timetables/{id}/exams": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Derive an exam timetable from a teaching timetable",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateExamRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List timetable versions for a term",
                "parameters": [
                    {"name": "academicYear", "in": "query", "type": "string", "required": true},
                    {"name": "term", "in": "query", "type": "integer", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}": {
            "get": {
                "tags": ["Timetables"],
                "summary": "Get a timetable with slots, conflicts and stats",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "delete": {
                "tags": ["Timetables"],
                "summary": "Delete a non-active timetable version",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "412": {"description": "Timetable is active"}
                }
            }
        },
        "/timetables/{id}/slots": {
            "get": {
                "tags": ["Timetables"],
                "summary": "List the slots of a timetable",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            }
        },
        "/timetables/{id}/activate": {
            "post": {
                "tags": ["Timetables"],
                "summary": "Activate a version, archiving the previous active one",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetables/{id}/export": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue a CSV or PDF render of a timetable",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportTimetableRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted"}
                }
            }
        },
        "/exports/{jobId}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a rendered artifact or poll its status",
                "parameters": [
                    {"name": "jobId", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "Artifact or status"},
                    "404": {"description": "Unknown or expired job"}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["academicYear", "term"],
            "properties": {
                "academicYear": {"type": "string"},
                "term": {"type": "integer"},
                "name": {"type": "string"},
                "optimizeFor": {"type": "string", "enum": ["BALANCED_WORKLOAD", "TEACHER_PREFERENCES", "SUBJECT_DISTRIBUTION", "MINIMIZE_CONFLICTS"]},
                "allowBackToBackDifficult": {"type": "boolean"},
                "maxPeriodsPerDayPerTeacher": {"type": "integer"},
                "preferMorningForDifficult": {"type": "boolean"}
            }
        },
        "GenerateExamRequest": {
            "type": "object",
            "required": ["examDays"],
            "properties": {
                "examDays": {"type": "array", "items": {"type": "integer"}},
                "maxExamsPerDay": {"type": "integer"},
                "minTimeBetweenExams": {"type": "integer"},
                "prioritizeCore": {"type": "boolean"},
                "examType": {"type": "string", "enum": ["MIDTERM", "FINAL", "QUIZ"]},
                "name": {"type": "string"}
            }
        },
        "ExportTimetableRequest": {
            "type": "object",
            "required": ["format"],
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]}
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
