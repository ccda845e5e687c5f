package schema

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow"
	json "github.com/goccy/go-json"
)

// Registry errors
var (
	ErrUnknownSchema = errors.New("schema not found in registry")
	ErrUnknownType   = errors.New("unknown field type")
)

// FieldDef defines a single field of a registered schema.
type FieldDef struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description,omitempty"`
}

// Definition is a complete named schema.
type Definition struct {
	ID          string     `json:"id"`
	Version     string     `json:"version"`
	Description string     `json:"description,omitempty"`
	Fields      []FieldDef `json:"fields"`
	PartitionBy []string   `json:"partition_by,omitempty"`
	SortBy      []string   `json:"sort_by,omitempty"`
}

// Registry manages named schema definitions with optional JSON persistence.
type Registry struct {
	dir  string
	defs map[string]*Definition
	mu   sync.RWMutex
}

// NewRegistry creates a Registry pre-loaded with the built-in schemas. If
// dir is non-empty, definitions previously saved there are loaded as well
// and Register persists new definitions to it.
func NewRegistry(dir string) (*Registry, error) {
	r := &Registry{
		dir:  dir,
		defs: make(map[string]*Definition),
	}
	for _, def := range builtinDefinitions() {
		r.defs[def.ID] = def
	}

	if dir != "" {
		if err := r.loadDir(dir); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read schema directory: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("failed to read schema file %s: %w", e.Name(), err)
		}
		var def Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return fmt.Errorf("failed to parse schema file %s: %w", e.Name(), err)
		}
		r.defs[def.ID] = &def
	}
	return nil
}

// Register adds a definition, persisting it when the registry has a
// directory. An existing definition with the same ID is replaced.
func (r *Registry) Register(def *Definition) error {
	if def.ID == "" {
		return errors.New("schema ID is required")
	}
	if len(def.Fields) == 0 {
		return errors.New("schema has no fields")
	}
	for _, f := range def.Fields {
		if _, err := TypeFromString(f.Type); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.ID] = def

	if r.dir != "" {
		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return fmt.Errorf("failed to create schema directory: %w", err)
		}
		data, err := json.MarshalIndent(def, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal schema %s: %w", def.ID, err)
		}
		path := filepath.Join(r.dir, def.ID+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to save schema %s: %w", def.ID, err)
		}
	}
	return nil
}

// Get retrieves a definition by ID.
func (r *Registry) Get(id string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSchema, id)
	}
	return def, nil
}

// List returns the IDs of all registered schemas, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.defs))
	for id := range r.defs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ArrowSchema converts a registered definition to an Arrow schema.
func (r *Registry) ArrowSchema(id string) (*arrow.Schema, error) {
	def, err := r.Get(id)
	if err != nil {
		return nil, err
	}

	fields := make([]arrow.Field, len(def.Fields))
	for i, f := range def.Fields {
		dt, err := TypeFromString(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields[i] = arrow.Field{Name: f.Name, Type: dt, Nullable: f.Nullable}
	}
	return arrow.NewSchema(fields, nil), nil
}

// TypeFromString maps a definition type string to an Arrow data type.
func TypeFromString(s string) (arrow.DataType, error) {
	switch strings.ToLower(s) {
	case "string", "utf8":
		return arrow.BinaryTypes.String, nil
	case "int64":
		return arrow.PrimitiveTypes.Int64, nil
	case "int32":
		return arrow.PrimitiveTypes.Int32, nil
	case "float64":
		return arrow.PrimitiveTypes.Float64, nil
	case "float32":
		return arrow.PrimitiveTypes.Float32, nil
	case "bool", "boolean":
		return arrow.FixedWidthTypes.Boolean, nil
	case "binary":
		return arrow.BinaryTypes.Binary, nil
	case "timestamp[ns]":
		return arrow.FixedWidthTypes.Timestamp_ns, nil
	case "timestamp[us]":
		return arrow.FixedWidthTypes.Timestamp_us, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, s)
	}
}

func builtinDefinitions() []*Definition {
	return []*Definition{
		{
			ID:          "ticks_v1",
			Version:     "1.0.0",
			Description: "Standard tick data schema",
			Fields: []FieldDef{
				{Name: "ts", Type: "timestamp[ns]", Nullable: false, Description: "Timestamp in nanoseconds"},
				{Name: "symbol", Type: "string", Nullable: false, Description: "Trading symbol"},
				{Name: "price", Type: "float64", Nullable: false, Description: "Trade price"},
				{Name: "size", Type: "int64", Nullable: false, Description: "Trade size"},
				{Name: "side", Type: "string", Nullable: true, Description: "Trade side (buy/sell)"},
				{Name: "exchange", Type: "string", Nullable: true, Description: "Exchange identifier"},
				{Name: "source_id", Type: "string", Nullable: false, Description: "Data source identifier"},
				{Name: "ingest_ts", Type: "timestamp[ns]", Nullable: false, Description: "Ingestion timestamp"},
			},
			PartitionBy: []string{"symbol", "dt"},
			SortBy:      []string{"ts"},
		},
		{
			ID:          "alt_nvd_v1",
			Version:     "1.0.0",
			Description: "Alternative data schema for news/sentiment",
			Fields: []FieldDef{
				{Name: "ts", Type: "timestamp[ns]", Nullable: false, Description: "Event timestamp"},
				{Name: "symbol", Type: "string", Nullable: false, Description: "Related symbol"},
				{Name: "event_type", Type: "string", Nullable: false, Description: "Event type (news, sentiment, etc.)"},
				{Name: "content", Type: "string", Nullable: true, Description: "Event content"},
				{Name: "score", Type: "float64", Nullable: true, Description: "Sentiment score (-1 to 1)"},
				{Name: "source", Type: "string", Nullable: true, Description: "Data source"},
				{Name: "source_id", Type: "string", Nullable: false, Description: "Data source identifier"},
				{Name: "ingest_ts", Type: "timestamp[ns]", Nullable: false, Description: "Ingestion timestamp"},
			},
			PartitionBy: []string{"symbol", "dt"},
			SortBy:      []string{"ts"},
		},
	}
}
