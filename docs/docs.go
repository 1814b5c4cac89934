// Package docs registers the OpenAPI description served under /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/notes": {
            "get": {
                "description": "Newest first. The total match count is returned in X-Total-Count.",
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "List notes",
                "parameters": [
                    {"type": "string", "description": "owner id", "name": "X-Owner-ID", "in": "header", "required": true},
                    {"type": "integer", "description": "page size (1..100, default 20)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "rows to skip", "name": "offset", "in": "query"},
                    {"type": "string", "description": "queued|processing|done|failed", "name": "status", "in": "query"},
                    {"type": "string", "description": "case-insensitive text search", "name": "q", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/httptransport.noteResp"}},
                        "headers": {"X-Total-Count": {"type": "integer", "description": "total matching notes"}}
                    },
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            },
            "post": {
                "description": "Stores the note as queued; a worker summarizes it in the background.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Create a note",
                "parameters": [
                    {"type": "string", "description": "owner id", "name": "X-Owner-ID", "in": "header", "required": true},
                    {"description": "note payload", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/httptransport.createNoteDTO"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/httptransport.noteResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        },
        "/notes/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["notes"],
                "summary": "Get note by id",
                "parameters": [
                    {"type": "string", "description": "owner id", "name": "X-Owner-ID", "in": "header", "required": true},
                    {"type": "string", "description": "note id (uuid)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.noteResp"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httptransport.apiError"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.apiError"}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.apiError": {
            "type": "object",
            "properties": {"message": {"type": "string"}}
        },
        "httptransport.createNoteDTO": {
            "type": "object",
            "properties": {"text": {"type": "string"}}
        },
        "httptransport.noteResp": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "text": {"type": "string"},
                "summary": {"type": "string"},
                "status": {"type": "string", "enum": ["queued", "processing", "done", "failed"]},
                "attempts": {"type": "integer"},
                "last_error": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Note Summary Service API",
	Description:      "Queues notes for asynchronous summarization and reports their status.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
