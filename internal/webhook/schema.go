package webhook

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidPayload indicates the payload body failed structural validation.
var ErrInvalidPayload = errors.New("payload does not match webhook schema")

// payloadSchema is the structural contract for inbound deliveries. Commit
// timestamps are zoned ISO-8601 strings; file lists may be omitted.
const payloadSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["repository", "commits"],
  "properties": {
    "repository": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": {"type": "integer"},
        "html_url": {"type": "string"}
      }
    },
    "commits": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "message", "timestamp"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "message": {"type": "string"},
          "url": {"type": "string"},
          "timestamp": {"type": "string", "format": "date-time"},
          "author": {
            "type": "object",
            "properties": {
              "name": {"type": "string"},
              "email": {"type": "string"}
            }
          },
          "added": {"type": "array", "items": {"type": "string"}},
          "removed": {"type": "array", "items": {"type": "string"}},
          "modified": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

var compiledSchema = gojsonschema.NewStringLoader(payloadSchema)

// ValidateSchema checks raw bytes against the payload schema.
// Violations are joined into one ErrInvalidPayload-wrapped error.
func ValidateSchema(raw []byte) error {
	result, err := gojsonschema.Validate(compiledSchema, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if result.Valid() {
		return nil
	}

	var sb strings.Builder

	for i, desc := range result.Errors() {
		if i > 0 {
			sb.WriteString("; ")
		}

		sb.WriteString(desc.String())
	}

	return fmt.Errorf("%w: %s", ErrInvalidPayload, sb.String())
}
