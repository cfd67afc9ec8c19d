package openapi

import (
	"maps"
	"net/http"
)

// NewComponents returns the schemas and error responses every API
// document shares. Errors use the {"success": false, "error": ...}
// envelope.
func NewComponents() *Components {
	return &Components{
		Schemas: map[string]*Schema{
			"Failure": Object(map[string]*Schema{
				"success": {Type: "boolean", Example: false},
				"error":   {Type: "string", Description: "Error message"},
			}, "error"),
			"PageRequest": Object(map[string]*Schema{
				"page":      {Type: "integer", Description: "Page number (1-indexed)", Example: 1},
				"page_size": {Type: "integer", Description: "Results per page", Example: 20},
				"search":    {Type: "string", Description: "Substring matched against lot, guide and operator"},
				"sort":      {Type: "string", Description: "Comma-separated fields, - prefix for descending", Example: "-CreatedAt"},
			}),
		},
		Responses: map[string]*Response{
			"BadRequest":   failure(http.StatusBadRequest),
			"Unauthorized": failure(http.StatusUnauthorized),
			"NotFound":     failure(http.StatusNotFound),
			"Conflict":     failure(http.StatusConflict),
			"Unavailable":  failure(http.StatusServiceUnavailable),
		},
	}
}

// AddSchemas merges schemas into the component schemas.
func (c *Components) AddSchemas(schemas map[string]*Schema) {
	maps.Copy(c.Schemas, schemas)
}

// AddResponses merges responses into the component responses.
func (c *Components) AddResponses(responses map[string]*Response) {
	maps.Copy(c.Responses, responses)
}

func failure(status int) *Response {
	return ResponseJSON(http.StatusText(status), "Failure")
}
