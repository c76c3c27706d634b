package dispatch

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
)

// SchemaRegistry generates and caches JSON Schema documents for the request
// and response types of registered host callbacks, so an embedder can publish
// a machine-readable description of its host-callback surface to guest
// authors without hand-maintaining it alongside the Go types.
type SchemaRegistry struct {
	config  schemaRegistryConfig
	schemas sync.Map // map[string]string (operation -> JSON schema)
}

type schemaRegistryConfig struct {
	strictMode bool
}

// SchemaOption configures a SchemaRegistry.
type SchemaOption func(*schemaRegistryConfig)

// WithStrictSchemas disables re-registration of a schema for an operation
// that already has one. Enabled by default.
func WithStrictSchemas(enabled bool) SchemaOption {
	return func(c *schemaRegistryConfig) {
		c.strictMode = enabled
	}
}

// NewSchemaRegistry creates an empty SchemaRegistry.
func NewSchemaRegistry(opts ...SchemaOption) *SchemaRegistry {
	cfg := schemaRegistryConfig{strictMode: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &SchemaRegistry{config: cfg}
}

// Register reflects a Go type into a JSON Schema document and associates it
// with the given operation name.
func (r *SchemaRegistry) Register(operation string, model any) error {
	if r.config.strictMode {
		if _, exists := r.schemas.Load(operation); exists {
			return fmt.Errorf("schema already registered for operation %q", operation)
		}
	}

	reflector := jsonschema.Reflector{ExpandedStruct: true}
	doc := reflector.Reflect(model)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal schema for %q: %w", operation, err)
	}
	r.schemas.Store(operation, string(data))
	return nil
}

// Schema returns the JSON Schema document registered for an operation.
func (r *SchemaRegistry) Schema(operation string) (string, bool) {
	v, ok := r.schemas.Load(operation)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Operations returns the names of all operations with a registered schema.
func (r *SchemaRegistry) Operations() []string {
	var names []string
	r.schemas.Range(func(k, _ any) bool {
		names = append(names, k.(string))
		return true
	})
	return names
}
