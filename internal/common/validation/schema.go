// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Request bodies are dynamic JSON at the boundary; each endpoint declares a
// schema here and validates once before any typed decoding or mutation.

// CompanyUpdateSchema constrains the company status-update body. Status is
// the only required field; companion fields are free-form strings except
// interviewDate, which must be RFC 3339.
var CompanyUpdateSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"status": map[string]interface{}{
			"type":      "string",
			"minLength": 1,
		},
		"companyNotes": map[string]interface{}{
			"type":      "string",
			"maxLength": 5000,
		},
		"interviewDate": map[string]interface{}{
			"type":   "string",
			"format": "date-time",
		},
		"interviewer": map[string]interface{}{
			"type":      "string",
			"maxLength": 200,
		},
		"location": map[string]interface{}{
			"type":      "string",
			"maxLength": 500,
		},
	},
	"required":             []interface{}{"status"},
	"additionalProperties": false,
}

// Validate checks data against schemaMap and returns a single descriptive
// error listing every violation.
func Validate(schemaMap, data map[string]interface{}) error {
	if len(schemaMap) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(schemaMap)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("request validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
