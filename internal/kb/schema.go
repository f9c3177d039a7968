package kb

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// articleSchema validates article create payloads and seed files before
// they reach a store.
const articleSchema = `{
	"type": "object",
	"required": ["title", "content"],
	"properties": {
		"title": {"type": "string", "minLength": 1, "maxLength": 200},
		"content": {"type": "string", "minLength": 1},
		"tags": {"type": "array", "items": {"type": "string"}}
	},
	"additionalProperties": false
}`

// ValidateArticlePayload checks a raw JSON article body against the
// schema and returns a message listing every violation.
func ValidateArticlePayload(data json.RawMessage) error {
	if !json.Valid(data) {
		return fmt.Errorf("payload is not valid JSON")
	}

	schemaLoader := gojsonschema.NewStringLoader(articleSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("invalid article: %s", strings.Join(errs, "; "))
	}

	return nil
}
