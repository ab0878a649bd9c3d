// Package docs holds the OpenAPI description of the ReMind HTTP API served
// at /swagger. Keep it in step with the handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/patient/query": {
            "post": {
                "tags": ["patient"],
                "summary": "Answer a patient query",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "header", "name": "Idempotency-Key", "type": "string"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/QueryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/QueryResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "No memories", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/agent/talk": {
            "post": {
                "tags": ["agent"],
                "summary": "Talk with an agent",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/TalkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/TalkResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "404": {"description": "Agent not found", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "502": {"description": "Generation failed", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/agents": {
            "get": {
                "tags": ["agent"],
                "summary": "List agent personas",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/agents/{name}": {
            "get": {
                "tags": ["agent"],
                "summary": "Get one agent persona",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "name", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/sessions/{patient_id}/stats": {
            "get": {
                "tags": ["sessions"],
                "summary": "Shown-content and conversation statistics",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "patient_id", "required": true, "type": "string"},
                    {"in": "query", "name": "topic", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions/{patient_id}/history": {
            "get": {
                "tags": ["sessions"],
                "summary": "Recent conversation turns",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "patient_id", "required": true, "type": "string"},
                    {"in": "query", "name": "topic", "type": "string"},
                    {"in": "query", "name": "max_turns", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions/{patient_id}/export": {
            "get": {
                "tags": ["sessions"],
                "summary": "Export a conversation",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "patient_id", "required": true, "type": "string"},
                    {"in": "query", "name": "topic", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/sessions/{patient_id}": {
            "delete": {
                "tags": ["sessions"],
                "summary": "Reset a session",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "patient_id", "required": true, "type": "string"},
                    {"in": "query", "name": "topic", "type": "string"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cache/stats": {
            "get": {
                "tags": ["cache"],
                "summary": "Memoization cache statistics",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/cache/clear": {
            "post": {
                "tags": ["cache"],
                "summary": "Clear memoization caches",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "cache_type", "type": "string", "enum": ["memories", "llm", "both"]}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/memories": {
            "post": {
                "tags": ["memories"],
                "summary": "Import memories",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "body", "required": true, "schema": {"type": "array", "items": {"$ref": "#/definitions/Memory"}}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/memories/search": {
            "get": {
                "tags": ["memories"],
                "summary": "Rank memories for a query",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "q", "required": true, "type": "string"},
                    {"in": "header", "name": "X-Patient-ID", "type": "string"},
                    {"in": "query", "name": "limit", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/memories/stats": {
            "get": {
                "tags": ["memories"],
                "summary": "Catalog statistics",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/memories/{id}": {
            "get": {
                "tags": ["memories"],
                "summary": "Get a memory",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string", "format": "uuid"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Memory"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["memories"],
                "summary": "Delete a memory",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string", "format": "uuid"}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "QueryRequest": {
            "type": "object",
            "required": ["topic", "transcription"],
            "properties": {
                "patient_id": {"type": "string"},
                "topic": {"type": "string"},
                "transcription": {"type": "string"},
                "display_mode": {"type": "string"}
            }
        },
        "QueryResult": {
            "type": "object",
            "properties": {
                "topic": {"type": "string"},
                "text": {"type": "string", "x-nullable": true},
                "displayMode": {"type": "string", "enum": ["3-pic", "4-pic", "5-pic", "video", "vertical-video", "agent"]},
                "media": {"type": "array", "items": {"type": "string"}},
                "lapped": {"type": "boolean"},
                "intent": {"type": "object"}
            }
        },
        "TalkRequest": {
            "type": "object",
            "required": ["transcription"],
            "properties": {
                "patient_id": {"type": "string"},
                "topic": {"type": "string"},
                "agent_name": {"type": "string"},
                "transcription": {"type": "string"}
            }
        },
        "TalkResult": {
            "type": "object",
            "properties": {
                "agent_name": {"type": "string"},
                "text": {"type": "string"},
                "personality_note": {"type": "string"}
            }
        },
        "Memory": {
            "type": "object",
            "required": ["event_name", "file_type", "description", "file_url"],
            "properties": {
                "id": {"type": "string"},
                "event_name": {"type": "string"},
                "file_name": {"type": "string"},
                "file_type": {"type": "string", "enum": ["image", "video"]},
                "description": {"type": "string"},
                "people": {"type": "array", "items": {"type": "string"}},
                "event_summary": {"type": "string"},
                "file_url": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ReMind API",
	Description:      "Adaptive memory serving for reminiscence sessions.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
