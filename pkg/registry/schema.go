package registry

import "sme-onboarding/internal/common/validation"

// FieldSpec declares one dynamic form field.
type FieldSpec struct {
	Key         string          `json:"key" yaml:"key"`
	Label       string          `json:"label" yaml:"label"`
	Required    bool            `json:"required" yaml:"required"`
	Placeholder string          `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Rule        validation.Rule `json:"rule,omitempty" yaml:"rule,omitempty"`
	Error       string          `json:"error,omitempty" yaml:"error,omitempty"`
	Multiline   bool            `json:"multiline,omitempty" yaml:"multiline,omitempty"`
}

// Validate returns "" or the message to store under the field key.
func (f *FieldSpec) Validate(value string) string {
	return validation.ValidateDynamic(&f.Rule, f.Label, f.Error, value, f.Required)
}

// DocumentSpec declares a document slot.
type DocumentSpec struct {
	Key       string   `json:"key" yaml:"key"`
	Label     string   `json:"label" yaml:"label"`
	Required  bool     `json:"required" yaml:"required"`
	Accept    []string `json:"accept,omitempty" yaml:"accept,omitempty"`
	MaxSizeMB int      `json:"maxSizeMB,omitempty" yaml:"maxSizeMB,omitempty"`
	Multiple  bool     `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	MaxFiles  int      `json:"maxFiles,omitempty" yaml:"maxFiles,omitempty"`
}

// DefaultMaxFiles bounds a multiple slot that declares no maxFiles.
const DefaultMaxFiles = 10

// FileLimit is how many files the slot holds at once.
func (d *DocumentSpec) FileLimit() int {
	switch {
	case !d.Multiple:
		return 1
	case d.MaxFiles > 0:
		return d.MaxFiles
	default:
		return DefaultMaxFiles
	}
}

// FileOptions converts the declaration into staging options on top of base.
func (d *DocumentSpec) FileOptions(base validation.FileOptions) validation.FileOptions {
	opts := base
	if d.MaxSizeMB > 0 {
		opts.MaxSize = int64(d.MaxSizeMB) * 1024 * 1024
	}
	if len(d.Accept) > 0 {
		opts.Extensions = d.Accept
	}
	return opts
}

type Country struct {
	Code      string         `json:"code" yaml:"code"`
	Name      string         `json:"name" yaml:"name"`
	Currency  string         `json:"currency" yaml:"currency"`
	Fields    []FieldSpec    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Documents []DocumentSpec `json:"documents,omitempty" yaml:"documents,omitempty"`
}

type BusinessType struct {
	ID          string         `json:"id" yaml:"id"`
	Label       string         `json:"label" yaml:"label"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []FieldSpec    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Documents   []DocumentSpec `json:"documents,omitempty" yaml:"documents,omitempty"`
}

// File is the on-disk shape of a registry override.
type File struct {
	Version       string         `json:"version" yaml:"version"`
	Countries     []Country      `json:"countries,omitempty" yaml:"countries,omitempty"`
	BusinessTypes []BusinessType `json:"businessTypes,omitempty" yaml:"businessTypes,omitempty"`
}

const fileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "version": {"type": "string"},
    "countries": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["code", "name", "currency"],
        "additionalProperties": false,
        "properties": {
          "code": {"type": "string", "pattern": "^[A-Z]{2}$"},
          "name": {"type": "string", "minLength": 1},
          "currency": {"type": "string", "pattern": "^[A-Z]{3}$"},
          "fields": {"type": "array", "items": {"$ref": "#/definitions/field"}},
          "documents": {"type": "array", "items": {"$ref": "#/definitions/document"}}
        }
      }
    },
    "businessTypes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "label"],
        "additionalProperties": false,
        "properties": {
          "id": {"type": "string", "pattern": "^[a-z][a-z0-9_]*$"},
          "label": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "fields": {"type": "array", "items": {"$ref": "#/definitions/field"}},
          "documents": {"type": "array", "items": {"$ref": "#/definitions/document"}}
        }
      }
    }
  },
  "definitions": {
    "field": {
      "type": "object",
      "required": ["key", "label"],
      "additionalProperties": false,
      "properties": {
        "key": {"type": "string", "pattern": "^[A-Za-z][A-Za-z0-9_]*$"},
        "label": {"type": "string", "minLength": 1},
        "required": {"type": "boolean"},
        "placeholder": {"type": "string"},
        "error": {"type": "string"},
        "multiline": {"type": "boolean"},
        "rule": {
          "type": "object",
          "additionalProperties": false,
          "properties": {
            "pattern": {"type": "string"},
            "minLength": {"type": "integer", "minimum": 0},
            "minInt": {"type": "integer"},
            "minLines": {"type": "integer", "minimum": 0},
            "minNumber": {"type": "number"},
            "stripSpaces": {"type": "boolean"}
          }
        }
      }
    },
    "document": {
      "type": "object",
      "required": ["key", "label"],
      "additionalProperties": false,
      "properties": {
        "key": {"type": "string", "pattern": "^[a-z][a-z0-9_]*$"},
        "label": {"type": "string", "minLength": 1},
        "required": {"type": "boolean"},
        "accept": {"type": "array", "items": {"type": "string", "pattern": "^\\.[a-z0-9]+$"}},
        "maxSizeMB": {"type": "integer", "minimum": 1},
        "multiple": {"type": "boolean"},
        "maxFiles": {"type": "integer", "minimum": 1}
      }
    }
  }
}`
