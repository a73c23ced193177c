// Package form holds the onboarding wizard: a pure reducer over State and
// a Wizard that serialises dispatches for one session.
package form

import (
	"fmt"
	"sort"
	"strings"

	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/staging"
)

const (
	StepBrief = iota
	StepBasicInfo
	StepFinancial
	StepDocuments
	StepReview
)

// LastStep is the final addressable step.
const LastStep = StepReview

// StepTitles are indexed by step number.
var StepTitles = []string{
	"Before you start",
	"Basic information",
	"Financial details",
	"Compliance & documents",
	"Review & submit",
}

// BaseFields lists every base field in form order.
var BaseFields = []string{
	"companyName", "registrationNumber", "country", "businessType", "email", "phone",
	"bankAccountNumber", "swift", "currency", "annualRevenue", "taxId",
}

// BaseFieldLabels are the prompts shown for base fields.
var BaseFieldLabels = map[string]string{
	"companyName":        "Company Name",
	"registrationNumber": "Registration Number",
	"country":            "Country",
	"businessType":       "Business Type",
	"email":              "Business Email",
	"phone":              "Phone Number",
	"bankAccountNumber":  "Bank Account Number",
	"swift":              "SWIFT/BIC Code",
	"currency":           "Currency",
	"annualRevenue":      "Annual Revenue",
	"taxId":              "Tax ID",
}

// StepFields maps each data-entry step to the base fields it collects.
var StepFields = map[int][]string{
	StepBasicInfo: {"companyName", "registrationNumber", "country", "businessType", "email", "phone"},
	StepFinancial: {"bankAccountNumber", "swift", "currency", "annualRevenue", "taxId"},
}

// FixedDocumentSlots exist regardless of selection.
var FixedDocumentSlots = []string{"kycDocument", "businessLicense", "proofOfAddress"}

// FixedDocumentLabels name the fixed slots.
var FixedDocumentLabels = map[string]string{
	"kycDocument":     "KYC document",
	"businessLicense": "Business license",
	"proofOfAddress":  "Proof of address",
}

// SupportingSlot is the optional multi-file slot for anything the
// selection does not ask for. Its files upload as document_type "supporting".
const SupportingSlot = "supporting"

// SupportingLabel names SupportingSlot.
const SupportingLabel = "Supporting documents"

// FileKey names file index of a multi-file slot in progress, metadata and
// the submission ledger, e.g. "all_partners_id[1]".
func FileKey(slot string, index int) string {
	return fmt.Sprintf("%s[%d]", slot, index)
}

func isFileKeyOf(key, slot string) bool {
	return strings.HasPrefix(key, slot+"[") && strings.HasSuffix(key, "]")
}

var baseFieldSet = func() map[string]bool {
	m := make(map[string]bool, len(BaseFields))
	for _, f := range BaseFields {
		m[f] = true
	}
	return m
}()

// IsBaseField reports whether name is one of BaseFields.
func IsBaseField(name string) bool {
	return baseFieldSet[name]
}

type Data struct {
	Fields                     map[string]string
	CountrySpecificFields      map[string]string
	BusinessTypeSpecificFields map[string]string
	// Documents maps slot key to staged file; nil means empty.
	Documents map[string]*staging.File
	// DocumentLists holds the files of multi-file slots in staging order.
	DocumentLists map[string][]*staging.File
	// DocumentsProgress and DocumentsMeta are keyed by slot, or by FileKey
	// for multi-file slots.
	DocumentsProgress map[string]int
	DocumentsMeta     map[string]models.Descriptor
}

// State is the complete wizard state. Treat it as immutable: Reduce
// returns a new State and never writes to the maps of its input.
type State struct {
	CurrentStep int
	Data        Data
	// Errors holds "" for a known field with no error; absent means never validated.
	Errors  map[string]string
	Touched map[string]bool
}

// InitialState returns step 0 with every base field empty and the fixed
// document slots present but empty.
func InitialState() State {
	fields := make(map[string]string, len(BaseFields))
	for _, f := range BaseFields {
		fields[f] = ""
	}
	docs := make(map[string]*staging.File, len(FixedDocumentSlots))
	for _, slot := range FixedDocumentSlots {
		docs[slot] = nil
	}
	return State{
		CurrentStep: StepBrief,
		Data: Data{
			Fields:                     fields,
			CountrySpecificFields:      map[string]string{},
			BusinessTypeSpecificFields: map[string]string{},
			Documents:                  docs,
			DocumentLists:              map[string][]*staging.File{},
			DocumentsProgress:          map[string]int{},
			DocumentsMeta:              map[string]models.Descriptor{},
		},
		Errors:  map[string]string{},
		Touched: map[string]bool{},
	}
}

// Clone returns a deep copy of the maps. Staged files are shared since
// they are never mutated.
func (s State) Clone() State {
	out := s
	out.Data.Fields = copyMap(s.Data.Fields)
	out.Data.CountrySpecificFields = copyMap(s.Data.CountrySpecificFields)
	out.Data.BusinessTypeSpecificFields = copyMap(s.Data.BusinessTypeSpecificFields)
	out.Data.Documents = copyMap(s.Data.Documents)
	out.Data.DocumentLists = copyMap(s.Data.DocumentLists)
	out.Data.DocumentsProgress = copyMap(s.Data.DocumentsProgress)
	out.Data.DocumentsMeta = copyMap(s.Data.DocumentsMeta)
	out.Errors = copyMap(s.Errors)
	out.Touched = copyMap(s.Touched)
	return out
}

// Field returns a base field value.
func (s State) Field(name string) string {
	return s.Data.Fields[name]
}

// Country is the selected country code, or "".
func (s State) Country() string {
	return s.Data.Fields["country"]
}

// BusinessType is the selected business type id, or "".
func (s State) BusinessType() string {
	return s.Data.Fields["businessType"]
}

// Files returns what is staged in slot: the list of a multi-file slot, or
// the single file, or nil.
func (s State) Files(slot string) []*staging.File {
	if list := s.Data.DocumentLists[slot]; len(list) > 0 {
		return append([]*staging.File(nil), list...)
	}
	if f := s.Data.Documents[slot]; f != nil {
		return []*staging.File{f}
	}
	return nil
}

// HasDocument reports whether slot holds at least one file.
func (s State) HasDocument(slot string) bool {
	return s.Data.Documents[slot] != nil || len(s.Data.DocumentLists[slot]) > 0
}

// StagedSlots lists every slot holding at least one file, sorted.
func (s State) StagedSlots() []string {
	seen := make(map[string]bool, len(s.Data.Documents)+len(s.Data.DocumentLists))
	for slot := range s.Data.Documents {
		if s.HasDocument(slot) {
			seen[slot] = true
		}
	}
	for slot := range s.Data.DocumentLists {
		if s.HasDocument(slot) {
			seen[slot] = true
		}
	}
	out := make([]string, 0, len(seen))
	for slot := range seen {
		out = append(out, slot)
	}
	sort.Strings(out)
	return out
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
