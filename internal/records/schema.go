package records

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/JaimeStill/rancoqc/internal/analysis"
)

//go:embed upload.schema.json
var uploadSchemaJSON string

var uploadSchema = mustSchema(uploadSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("upload schema: %v", err))
	}
	return s
}

// ValidationError lists every schema violation of an upload payload.
type ValidationError struct {
	Details []string
}

func (e *ValidationError) Error() string {
	return "invalid payload: " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidPayload
}

// Validate checks an upload payload against the upload schema.
func Validate(payload analysis.UploadPayload) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	result, err := uploadSchema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("validate payload: %w", err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		details = append(details, desc.String())
	}
	return &ValidationError{Details: details}
}
