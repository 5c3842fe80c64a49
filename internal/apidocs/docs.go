// Package apidocs registers the OpenAPI document served by the swagger UI.
// The document follows the handler annotations in internal/httpapi.
package apidocs

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
        "/healthz": {"get": {"tags": ["system"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}},
        "/version": {"get": {"tags": ["system"], "summary": "Service version", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.VersionResponse"}}}}},
        "/api/debug/env": {"get": {"tags": ["system"], "summary": "Effective runtime configuration", "responses": {"200": {"description": "OK"}}}},
        "/api/projects": {
            "get": {"tags": ["projects"], "summary": "List projects", "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["projects"], "summary": "Create a project",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.CreateProjectRequest"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}, "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}}
            }
        },
        "/api/projects/{name}/tree": {"get": {"tags": ["files"], "summary": "List project files", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/projects/{name}/file": {
            "get": {"tags": ["files"], "summary": "Read a project file", "produces": ["text/plain"], "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}, {"in": "query", "name": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}},
            "post": {"tags": ["files"], "summary": "Create or replace a project file", "consumes": ["multipart/form-data"], "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}, {"in": "formData", "name": "path", "type": "string", "required": true}, {"in": "formData", "name": "content", "type": "file", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}},
            "delete": {"tags": ["files"], "summary": "Delete a project file", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}, {"in": "query", "name": "path", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/api/projects/{name}/status": {"get": {"tags": ["inference"], "summary": "Inference status of a project", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/projects/{name}/train": {"post": {"tags": ["jobs"], "summary": "Train a project", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}, {"in": "query", "name": "wait", "type": "boolean"}], "responses": {"200": {"description": "Finished"}, "202": {"description": "Accepted"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}},
        "/api/projects/{name}/inference/start": {"post": {"tags": ["inference"], "summary": "Start the inference endpoint", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}, {"in": "body", "name": "body", "schema": {"$ref": "#/definitions/types.StartInferenceRequest"}}], "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}, "500": {"description": "Execution failed"}}}},
        "/api/projects/{name}/inference/stop": {"post": {"tags": ["inference"], "summary": "Stop the inference endpoint", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/projects/{name}/chat": {"post": {"tags": ["inference"], "summary": "Send a message to the running bot", "parameters": [{"in": "path", "name": "name", "type": "string", "required": true}, {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ChatRequest"}}], "responses": {"200": {"description": "OK"}, "400": {"description": "Not running"}, "502": {"description": "Upstream failure"}}}},
        "/api/jobs": {"get": {"tags": ["jobs"], "summary": "List training jobs", "responses": {"200": {"description": "OK"}}}},
        "/api/jobs/{id}": {"get": {"tags": ["jobs"], "summary": "Get a training job", "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/jobs/{id}/logs": {"get": {"tags": ["jobs"], "summary": "Training log", "produces": ["text/plain"], "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}, {"in": "query", "name": "follow", "type": "boolean"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/inference": {"get": {"tags": ["inference"], "summary": "Running inference endpoints", "responses": {"200": {"description": "OK"}}}}
    },
    "definitions": {
        "types.ErrorResponse": {"type": "object", "properties": {"error": {"type": "string"}, "code": {"type": "integer"}, "upstream": {"type": "object"}}},
        "types.VersionResponse": {"type": "object", "properties": {"version": {"type": "string"}}},
        "types.CreateProjectRequest": {"type": "object", "properties": {"name": {"type": "string"}, "template": {"type": "string"}}},
        "types.StartInferenceRequest": {"type": "object", "properties": {"port": {"type": "integer"}}},
        "types.ChatRequest": {"type": "object", "properties": {"message": {"type": "string"}, "sender": {"type": "string"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.3.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "rasad API",
	Description:      "Management API for conversational bot projects: files, training jobs and inference endpoints.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
