// Package docs holds the OpenAPI description served at /swagger.
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
        "/checkin": {
            "post": {
                "description": "Resolves the guest holding the ticket and marks them checked in",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["checkin"],
                "summary": "Check a guest in",
                "parameters": [
                    {
                        "description": "Event id and ticket key",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/checkin.CheckinRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/response.Result"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.Result"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.Result"}},
                    "405": {"description": "Method Not Allowed", "schema": {"$ref": "#/definitions/response.Result"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.Result"}}
                }
            }
        }
    },
    "definitions": {
        "checkin.CheckinRequest": {
            "type": "object",
            "required": ["eventId", "pk"],
            "properties": {
                "eventId": {"type": "string"},
                "pk": {"type": "string"}
            }
        },
        "response.Result": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "ok": {"type": "boolean"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Luma Check-in API",
	Description:      "Marks Luma guests as checked in from scanned ticket links.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
