// Package registry holds the country and business-type tables that drive
// the dynamic parts of the onboarding form.
package registry

import (
	"fmt"
	"os"
	"strings"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/validation"

	"gopkg.in/yaml.v3"
)

// Registry is immutable after construction and safe for concurrent reads.
type Registry struct {
	countries     map[string]*Country
	countryOrder  []string
	businessTypes map[string]*BusinessType
	typeOrder     []string
}

func newRegistry(countries []Country, types []BusinessType) (*Registry, error) {
	r := &Registry{
		countries:     make(map[string]*Country),
		businessTypes: make(map[string]*BusinessType),
	}
	for i := range countries {
		if err := r.putCountry(countries[i]); err != nil {
			return nil, err
		}
	}
	for i := range types {
		if err := r.putBusinessType(types[i]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) putCountry(c Country) error {
	if err := compileFields(c.Fields); err != nil {
		return fmt.Errorf("country %s: %w", c.Code, err)
	}
	if _, exists := r.countries[c.Code]; !exists {
		r.countryOrder = append(r.countryOrder, c.Code)
	}
	cc := c
	r.countries[c.Code] = &cc
	return nil
}

func (r *Registry) putBusinessType(b BusinessType) error {
	if err := compileFields(b.Fields); err != nil {
		return fmt.Errorf("business type %s: %w", b.ID, err)
	}
	if _, exists := r.businessTypes[b.ID]; !exists {
		r.typeOrder = append(r.typeOrder, b.ID)
	}
	bb := b
	r.businessTypes[b.ID] = &bb
	return nil
}

func compileFields(fields []FieldSpec) error {
	for i := range fields {
		if err := fields[i].Rule.Compile(); err != nil {
			return fmt.Errorf("field %s: %w", fields[i].Key, err)
		}
	}
	return nil
}

// Country looks up a country by ISO code.
func (r *Registry) Country(code string) (*Country, bool) {
	c, ok := r.countries[code]
	return c, ok
}

// BusinessType looks up a business type by id.
func (r *Registry) BusinessType(id string) (*BusinessType, bool) {
	b, ok := r.businessTypes[id]
	return b, ok
}

// Countries returns entries in declaration order.
func (r *Registry) Countries() []*Country {
	out := make([]*Country, 0, len(r.countryOrder))
	for _, code := range r.countryOrder {
		out = append(out, r.countries[code])
	}
	return out
}

// BusinessTypes returns entries in declaration order.
func (r *Registry) BusinessTypes() []*BusinessType {
	out := make([]*BusinessType, 0, len(r.typeOrder))
	for _, id := range r.typeOrder {
		out = append(out, r.businessTypes[id])
	}
	return out
}

// CountryField finds a field declared by the given country.
func (r *Registry) CountryField(country, key string) (*FieldSpec, bool) {
	c, ok := r.countries[country]
	if !ok {
		return nil, false
	}
	return findField(c.Fields, key)
}

// BusinessTypeField finds a field declared by the given business type.
func (r *Registry) BusinessTypeField(businessType, key string) (*FieldSpec, bool) {
	b, ok := r.businessTypes[businessType]
	if !ok {
		return nil, false
	}
	return findField(b.Fields, key)
}

func findField(fields []FieldSpec, key string) (*FieldSpec, bool) {
	for i := range fields {
		if fields[i].Key == key {
			return &fields[i], true
		}
	}
	return nil, false
}

// Documents returns every declared document for the selection: country
// declarations first, then business type, de-duplicated by key with the
// first declaration winning. Unknown or empty selections contribute nothing.
func (r *Registry) Documents(country, businessType string) []DocumentSpec {
	var out []DocumentSpec
	seen := make(map[string]bool)
	add := func(docs []DocumentSpec) {
		for _, d := range docs {
			if seen[d.Key] {
				continue
			}
			seen[d.Key] = true
			out = append(out, d)
		}
	}
	if c, ok := r.countries[country]; ok {
		add(c.Documents)
	}
	if b, ok := r.businessTypes[businessType]; ok {
		add(b.Documents)
	}
	return out
}

// Document finds a declared document for the selection.
func (r *Registry) Document(country, businessType, key string) (*DocumentSpec, bool) {
	for _, d := range r.Documents(country, businessType) {
		if d.Key == key {
			dd := d
			return &dd, true
		}
	}
	return nil, false
}

// RequiredDocuments derives the ordered list of document keys that must be
// staged before submission. A key is required when any declaration for it
// on either side is required.
func (r *Registry) RequiredDocuments(country, businessType string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(docs []DocumentSpec) {
		for _, d := range docs {
			if !d.Required || seen[d.Key] {
				continue
			}
			seen[d.Key] = true
			out = append(out, d.Key)
		}
	}
	if c, ok := r.countries[country]; ok {
		add(c.Documents)
	}
	if b, ok := r.businessTypes[businessType]; ok {
		add(b.Documents)
	}
	return out
}

// Merge returns a new registry with the override's entries replacing or
// extending the receiver's. Entries are replaced whole, not field by field.
func (r *Registry) Merge(f *File) (*Registry, error) {
	out, err := newRegistry(nil, nil)
	if err != nil {
		return nil, err
	}
	for _, c := range r.Countries() {
		if err := out.putCountry(*c); err != nil {
			return nil, err
		}
	}
	for _, b := range r.BusinessTypes() {
		if err := out.putBusinessType(*b); err != nil {
			return nil, err
		}
	}
	for _, c := range f.Countries {
		if err := out.putCountry(c); err != nil {
			return nil, stderrors.NewRegistryInvalidError(err.Error())
		}
	}
	for _, b := range f.BusinessTypes {
		if err := out.putBusinessType(b); err != nil {
			return nil, stderrors.NewRegistryInvalidError(err.Error())
		}
	}
	return out, nil
}

// ParseFile decodes and schema-checks a YAML (or JSON) override.
func ParseFile(data []byte) (*File, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, stderrors.NewRegistryInvalidError(fmt.Sprintf("parse: %v", err))
	}
	if raw == nil {
		return &File{}, nil
	}

	res, err := validation.ValidateDocumentJSON(fileSchema, raw)
	if err != nil {
		return nil, stderrors.NewRegistryInvalidError(err.Error())
	}
	if !res.Valid {
		return nil, stderrors.NewRegistryInvalidError(strings.Join(res.GetErrorMessages(), "; "))
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, stderrors.NewRegistryInvalidError(fmt.Sprintf("decode: %v", err))
	}
	return &f, nil
}

// LoadRegistry reads an override file and merges it over the built-in tables.
func LoadRegistry(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	f, err := ParseFile(data)
	if err != nil {
		return nil, err
	}
	return Default().Merge(f)
}
