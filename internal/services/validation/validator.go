package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// CurrentSchemaVersion is the version written for new authorized-client documents.
const CurrentSchemaVersion = 2

// ErrUnsupportedSchemaVersion is returned for documents persisted under a
// schema version this build does not know.
var ErrUnsupportedSchemaVersion = errors.New("unsupported schema version")

//go:embed schemas/*.json
var schemaFS embed.FS

// AuthorizedClientDocument is the persisted allow-list entry for a client in one tenant.
type AuthorizedClientDocument struct {
	SchemaVersion int       `json:"schema_version"`
	ClientID      string    `json:"client_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	GrantedBy     string    `json:"granted_by,omitempty"`
	GrantedAt     time.Time `json:"granted_at,omitempty"`
	Scopes        []string  `json:"scopes,omitempty"`
}

// DocumentValidator checks persisted authorized-client documents against the
// JSON schema of the version they declare.
type DocumentValidator struct {
	schemaCache *lru.Cache[int, *jsonschema.Schema]
}

// NewDocumentValidator creates a validator with LRU caching for compiled schemas.
func NewDocumentValidator(cacheSize int) (*DocumentValidator, error) {
	cache, err := lru.New[int, *jsonschema.Schema](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create schema cache: %w", err)
	}
	return &DocumentValidator{schemaCache: cache}, nil
}

// Decode validates raw and decodes it. Unknown versions fail with
// ErrUnsupportedSchemaVersion; schema violations fail with a descriptive error.
func (v *DocumentValidator) Decode(raw []byte) (*AuthorizedClientDocument, error) {
	var header struct {
		SchemaVersion int `json:"schema_version"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("parse authorized client document: %w", err)
	}

	schema, err := v.schemaFor(header.SchemaVersion)
	if err != nil {
		return nil, err
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse authorized client document: %w", err)
	}
	if err := schema.Validate(instance); err != nil {
		return nil, fmt.Errorf("authorized client document v%d invalid: %w", header.SchemaVersion, err)
	}

	var doc AuthorizedClientDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode authorized client document: %w", err)
	}
	return &doc, nil
}

// Encode validates doc against the current schema and returns its JSON form.
func (v *DocumentValidator) Encode(doc AuthorizedClientDocument) ([]byte, error) {
	doc.SchemaVersion = CurrentSchemaVersion
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode authorized client document: %w", err)
	}
	if _, err := v.Decode(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (v *DocumentValidator) schemaFor(version int) (*jsonschema.Schema, error) {
	if cached, ok := v.schemaCache.Get(version); ok {
		return cached, nil
	}

	name := fmt.Sprintf("schemas/authorized_client.v%d.json", version)
	content, err := schemaFS.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSchemaVersion, version)
	}

	schema, err := compileSchema(name, content)
	if err != nil {
		return nil, err
	}
	v.schemaCache.Add(version, schema)
	return schema, nil
}

func compileSchema(url string, content []byte) (*jsonschema.Schema, error) {
	parsed, err := jsonschema.UnmarshalJSON(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse schema JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.DefaultDraft(jsonschema.Draft7)
	compiler.AssertFormat()
	if err := compiler.AddResource(url, parsed); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
