// Package swagger embeds the OpenAPI document for the REST API.
package swagger

import _ "embed"

// Document is the OpenAPI 2.0 document served at /openapi.json.
//
//go:embed user.swagger.json
var Document []byte
