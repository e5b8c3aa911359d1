package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	santhosh "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const (
	schemaCreateLicenses    = "create_licenses.json"
	schemaUpdateApplication = "update_application.json"
	schemaUpdateSettings    = "update_settings.json"
	schemaUpdateEndUser     = "update_end_user.json"
)

// schemaViolation lists every reason a request body failed its schema.
type schemaViolation struct {
	Errors []string
}

func (e *schemaViolation) Error() string {
	return fmt.Sprintf("request body violates schema: %v", e.Errors)
}

type payloadSchemas map[string]*santhosh.Schema

func loadPayloadSchemas() (payloadSchemas, error) {
	names := []string{schemaCreateLicenses, schemaUpdateApplication, schemaUpdateSettings, schemaUpdateEndUser}
	out := make(payloadSchemas, len(names))
	for _, name := range names {
		raw, err := schemaFS.ReadFile(path.Join("schemas", name))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		compiled, err := compileSchema(name, raw)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out[name] = compiled
	}
	return out, nil
}

func compileSchema(name string, schemaJSON []byte) (*santhosh.Schema, error) {
	compiler := santhosh.NewCompiler()
	compiler.Draft = santhosh.Draft7
	if err := compiler.AddResource(name, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(name)
}

// validate checks the raw body against the named schema. Bodies that are not
// JSON at all are left to the decoder so they get the usual error.
func (s payloadSchemas) validate(name string, body []byte) error {
	sch, ok := s[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil
	}
	if err := sch.Validate(v); err != nil {
		var ve *santhosh.ValidationError
		if errors.As(err, &ve) {
			return &schemaViolation{Errors: collectValidationErrors(ve)}
		}
		return &schemaViolation{Errors: []string{err.Error()}}
	}
	return nil
}

func collectValidationErrors(ve *santhosh.ValidationError) []string {
	var msgs []string
	for _, cause := range ve.Causes {
		msgs = append(msgs, collectValidationErrors(cause)...)
	}
	if len(ve.Causes) == 0 {
		msgs = append(msgs, ve.Error())
	}
	return msgs
}
