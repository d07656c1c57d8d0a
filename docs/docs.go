// Package docs registers the OpenAPI document served under /swagger/.
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
        "/products": {"get": {"tags": ["catalog"], "summary": "List products", "parameters": [{"$ref": "#/parameters/q"}, {"$ref": "#/parameters/sort"}, {"$ref": "#/parameters/page"}, {"$ref": "#/parameters/page_size"}, {"name": "category", "in": "query", "type": "string"}, {"name": "status", "in": "query", "type": "string"}, {"name": "price_min", "in": "query", "type": "number"}, {"name": "price_max", "in": "query", "type": "number"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultPage"}}}}},
        "/orders": {"get": {"tags": ["catalog"], "summary": "List orders", "parameters": [{"$ref": "#/parameters/q"}, {"$ref": "#/parameters/sort"}, {"$ref": "#/parameters/page"}, {"$ref": "#/parameters/page_size"}, {"name": "status", "in": "query", "type": "string"}, {"name": "payment_status", "in": "query", "type": "string"}, {"name": "order_date_min", "in": "query", "type": "string", "format": "date"}, {"name": "order_date_max", "in": "query", "type": "string", "format": "date"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultPage"}}}}},
        "/customers": {"get": {"tags": ["catalog"], "summary": "List customers", "parameters": [{"$ref": "#/parameters/q"}, {"$ref": "#/parameters/sort"}, {"$ref": "#/parameters/page"}, {"$ref": "#/parameters/page_size"}, {"name": "status", "in": "query", "type": "string"}, {"name": "membership_level", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultPage"}}}}},
        "/news": {"get": {"tags": ["catalog"], "summary": "List news articles", "parameters": [{"$ref": "#/parameters/q"}, {"$ref": "#/parameters/sort"}, {"$ref": "#/parameters/page"}, {"$ref": "#/parameters/page_size"}, {"name": "category", "in": "query", "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultPage"}}}}},
        "/search": {"get": {"tags": ["catalog"], "summary": "Search products by name, tags and description", "parameters": [{"$ref": "#/parameters/q"}, {"$ref": "#/parameters/page"}, {"$ref": "#/parameters/page_size"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultPage"}}}}},
        "/search/suggest": {"get": {"tags": ["catalog"], "summary": "Suggest product names and tags", "parameters": [{"$ref": "#/parameters/q"}], "responses": {"200": {"description": "OK"}}}},
        "/query/{collection}": {"post": {"tags": ["catalog"], "summary": "Run a strict query", "parameters": [{"$ref": "#/parameters/collection"}, {"name": "spec", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultPage"}}, "400": {"$ref": "#/responses/Error"}, "404": {"$ref": "#/responses/Error"}}}},
        "/cart/quote": {"post": {"tags": ["cart"], "summary": "Price a cart", "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}, "404": {"$ref": "#/responses/Error"}}}},
        "/admin/dashboard": {"get": {"tags": ["admin"], "summary": "Dashboard figures", "responses": {"200": {"description": "OK"}}}},
        "/admin/stats": {"get": {"tags": ["admin"], "summary": "Cache and transaction statistics", "responses": {"200": {"description": "OK"}}}},
        "/admin/analytics": {"get": {"tags": ["admin"], "summary": "Daily sales and product performance", "parameters": [{"name": "from", "in": "query", "type": "string"}, {"name": "to", "in": "query", "type": "string"}, {"name": "period", "in": "query", "type": "string", "enum": ["week", "month", "quarter", "year"]}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}}}},
        "/admin/{collection}": {"post": {"tags": ["admin"], "summary": "Create a document", "parameters": [{"$ref": "#/parameters/collection"}, {"$ref": "#/parameters/document"}], "responses": {"201": {"description": "Created"}, "400": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}}},
        "/admin/{collection}/import": {"post": {"tags": ["admin"], "summary": "Import documents", "parameters": [{"$ref": "#/parameters/collection"}, {"name": "request", "in": "body", "required": true, "schema": {"type": "object"}}], "responses": {"201": {"description": "Created"}, "400": {"$ref": "#/responses/Error"}}}},
        "/admin/{collection}/{id}": {
            "get": {"tags": ["admin"], "summary": "Get a document", "parameters": [{"$ref": "#/parameters/collection"}, {"$ref": "#/parameters/id"}], "responses": {"200": {"description": "OK"}, "404": {"$ref": "#/responses/Error"}}},
            "put": {"tags": ["admin"], "summary": "Replace a document", "parameters": [{"$ref": "#/parameters/collection"}, {"$ref": "#/parameters/id"}, {"$ref": "#/parameters/document"}], "responses": {"200": {"description": "OK"}, "400": {"$ref": "#/responses/Error"}, "404": {"$ref": "#/responses/Error"}, "409": {"$ref": "#/responses/Error"}}},
            "delete": {"tags": ["admin"], "summary": "Delete a document", "parameters": [{"$ref": "#/parameters/collection"}, {"$ref": "#/parameters/id"}], "responses": {"204": {"description": "No Content"}, "404": {"$ref": "#/responses/Error"}}}
        }
    },
    "parameters": {
        "q": {"name": "q", "in": "query", "type": "string", "description": "Case-insensitive substring"},
        "sort": {"name": "sort", "in": "query", "type": "string", "description": "Preset name, field, or field:asc|desc"},
        "page": {"name": "page", "in": "query", "type": "integer", "default": 1},
        "page_size": {"name": "page_size", "in": "query", "type": "integer"},
        "collection": {"name": "collection", "in": "path", "required": true, "type": "string", "enum": ["products", "orders", "customers", "news"]},
        "id": {"name": "id", "in": "path", "required": true, "type": "string"},
        "document": {"name": "document", "in": "body", "required": true, "schema": {"type": "object", "properties": {"fields": {"type": "object"}, "version": {"type": "integer"}}}}
    },
    "responses": {
        "Error": {"description": "Error envelope", "schema": {"$ref": "#/definitions/ErrorResponse"}}
    },
    "definitions": {
        "ResultPage": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"type": "object", "properties": {"id": {"type": "string"}, "fields": {"type": "object"}}}},
                "total_matched": {"type": "integer"},
                "facet_counts": {"type": "object"},
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_pages": {"type": "integer"},
                "highlights": {"type": "object"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {
                        "code": {"type": "string", "example": "NOT_FOUND"},
                        "message": {"type": "string"},
                        "details": {"type": "object"},
                        "timestamp": {"type": "string", "format": "date-time"},
                        "request_id": {"type": "string"}
                    }
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Farmstore Catalog API",
	Description:      "Listings, search, cart quotes and admin document management for the farm store.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
