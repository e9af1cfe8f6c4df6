// Package api carries the HTTP API description shipped with the server.
package api

import _ "embed"

// OpenAPI is the OpenAPI 3 document in YAML form.
//
//go:embed openapi/openapi.yaml
var OpenAPI []byte
