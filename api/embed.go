// Package api 嵌入对外发布的 API 文档
package api

import _ "embed"

// OpenAPISpec OpenAPI 3 文档（GET /openapi.yaml）
//
//go:embed openapi/openapi.yaml
var OpenAPISpec []byte
