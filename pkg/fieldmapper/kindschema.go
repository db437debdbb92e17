// Package fieldmapper turns a kind's configured field list into the
// concrete extraction and storage rules used by the processor: which
// upstream JSON fields map to which store columns, how each value is
// typed, and which fields carry hashes that need resolving.
package fieldmapper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValueType tags how a FieldMapping's raw JSON value should be converted
// before it is stored.
type ValueType string

const (
	TypeString   ValueType = "string"
	TypeInt      ValueType = "int"
	TypeFloat    ValueType = "float"
	TypeBool     ValueType = "bool"
	TypeDatetime ValueType = "datetime"
	TypeJSON     ValueType = "json"
	TypeHash     ValueType = "hash"
)

// IDField names the upstream field that carries the inspection ID and the
// store column it is written to.
type IDField struct {
	Upstream string `yaml:"upstream"`
	Column   string `yaml:"column"`
}

// FieldMapping describes one upstream field's extraction rule: its name in
// the API payload, the store column it's written to, its value type, and,
// for hash fields, which hash dictionary category resolves it.
type FieldMapping struct {
	Upstream string    `yaml:"upstream"`
	Column   string    `yaml:"column"`
	Type     ValueType `yaml:"type"`
	HashType string    `yaml:"hash_type,omitempty"`
}

func (f FieldMapping) validate() error {
	if f.Upstream == "" {
		return fmt.Errorf("field mapping missing upstream name")
	}
	if f.Column == "" {
		return fmt.Errorf("field mapping %q missing column", f.Upstream)
	}
	switch f.Type {
	case TypeString, TypeInt, TypeFloat, TypeBool, TypeDatetime, TypeJSON:
	case TypeHash:
		if f.HashType == "" {
			return fmt.Errorf("field mapping %q is type hash but has no hash_type", f.Upstream)
		}
	default:
		return fmt.Errorf("field mapping %q has unknown type %q", f.Upstream, f.Type)
	}
	return nil
}

// KindSchema is the fully parsed configuration for one inspection kind
// (LCD, CCC, TA, ...): how to fetch it, how to map its fields, how to
// render its report, and how to name its folders and attachments.
type KindSchema struct {
	Abbreviation               string            `yaml:"abbreviation"`
	FullName                   string            `yaml:"full_name"`
	EndpointTemplate           string            `yaml:"endpoint_template"`
	IDField                    IDField           `yaml:"id_field"`
	DateField                  string            `yaml:"date_field"`
	Fields                     []FieldMapping    `yaml:"fields"`
	ReportTemplateFile         string            `yaml:"report_template_file"`
	UnknownPlaceholder         string            `yaml:"unknown_placeholder"`
	DateFormat                 string            `yaml:"date_format"`
	FolderPattern              string            `yaml:"folder_pattern"`
	AttachmentFilenamePattern  string            `yaml:"attachment_filename_pattern"`
	Attachments                map[string]string `yaml:"attachments"`
}

// Endpoint fills EndpointTemplate's "$tip" placeholder with tip.
func (k *KindSchema) Endpoint(tip string) string {
	return strings.ReplaceAll(k.EndpointTemplate, "$tip", tip)
}

// AttachmentStub returns the configured stub override for an upstream
// attachment field, or ok=false if the field has no override and the
// caller should fall back to deriving one from the field name.
func (k *KindSchema) AttachmentStub(upstreamField string) (string, bool) {
	stub, ok := k.Attachments[upstreamField]
	return stub, ok
}

// ApplyDefaults fills in optional fields left unset in the config file.
func (k *KindSchema) ApplyDefaults() {
	if k.UnknownPlaceholder == "" {
		k.UnknownPlaceholder = "Unknown"
	}
	if k.DateFormat == "" {
		k.DateFormat = "2006-01-02"
	}
}

func (k *KindSchema) validate() error {
	if k.Abbreviation == "" {
		return fmt.Errorf("kind schema missing abbreviation")
	}
	if k.EndpointTemplate == "" {
		return fmt.Errorf("kind %s missing endpoint_template", k.Abbreviation)
	}
	if k.IDField.Upstream == "" || k.IDField.Column == "" {
		return fmt.Errorf("kind %s missing id_field", k.Abbreviation)
	}
	seen := make(map[string]struct{}, len(k.Fields))
	for _, f := range k.Fields {
		if err := f.validate(); err != nil {
			return fmt.Errorf("kind %s: %w", k.Abbreviation, err)
		}
		if _, dup := seen[f.Column]; dup {
			return fmt.Errorf("kind %s: column %q mapped by more than one field", k.Abbreviation, f.Column)
		}
		seen[f.Column] = struct{}{}
	}
	return nil
}

// LoadKindSchema parses a single kind configuration file.
func LoadKindSchema(path string) (*KindSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading kind schema %s: %w", path, err)
	}
	var schema KindSchema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("parsing kind schema %s: %w", path, err)
	}
	schema.ApplyDefaults()
	if err := schema.validate(); err != nil {
		return nil, err
	}
	return &schema, nil
}

// LoadKindSchemas parses every *.yaml/*.yml file in dir into a KindSchema,
// keyed by its abbreviation.
func LoadKindSchemas(dir string) (map[string]*KindSchema, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading kind config directory %s: %w", dir, err)
	}
	schemas := make(map[string]*KindSchema, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		schema, err := LoadKindSchema(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if _, dup := schemas[schema.Abbreviation]; dup {
			return nil, fmt.Errorf("duplicate kind abbreviation %q loaded from %s", schema.Abbreviation, entry.Name())
		}
		schemas[schema.Abbreviation] = schema
	}
	return schemas, nil
}
