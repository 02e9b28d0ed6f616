// Package docs registers the OpenAPI description served under /swagger.
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
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/ws": {
            "get": {
                "tags": ["Realtime"],
                "summary": "Open a realtime session",
                "parameters": [
                    {"type": "string", "name": "role", "in": "query"},
                    {"type": "string", "name": "token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Role not granted"},
                    "429": {"description": "Too many sessions"},
                    "503": {"description": "Channels not configured"}
                }
            }
        },
        "/api/v1/realtime/channels": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Realtime"],
                "summary": "List realtime channels",
                "parameters": [{"type": "string", "name": "role", "in": "query"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Role not granted"}}
            }
        },
        "/api/v1/realtime/channels/validate": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["Realtime"],
                "summary": "Validate a channel name",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad descriptor"}, "403": {"description": "Staff role required"}}
            }
        },
        "/api/v1/realtime/broadcast/{resource}": {
            "post": {
                "security": [{"Bearer": []}],
                "tags": ["Realtime"],
                "summary": "Broadcast a change",
                "parameters": [
                    {"type": "string", "name": "resource", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad event or payload"},
                    "403": {"description": "Staff role required"},
                    "404": {"description": "Unknown resource"},
                    "502": {"description": "Transport unavailable"}
                }
            }
        },
        "/api/v1/realtime/stats": {
            "get": {
                "security": [{"Bearer": []}],
                "tags": ["Realtime"],
                "summary": "Realtime statistics",
                "responses": {"200": {"description": "OK"}, "403": {"description": "Staff role required"}}
            }
        },
        "/health": {"get": {"tags": ["Health"], "summary": "Health Check", "responses": {"200": {"description": "OK"}, "503": {"description": "Degraded"}}}},
        "/ready": {"get": {"tags": ["Health"], "summary": "Readiness Check", "responses": {"200": {"description": "OK"}, "503": {"description": "Not ready"}}}},
        "/live": {"get": {"tags": ["Health"], "summary": "Liveness Check", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Farmstand Realtime API",
	Description:      "Realtime change notifications for the Farmstand storefront.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
