package form

import (
	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/staging"
)

// Action is a state transition request. Reduce is the only consumer.
type Action interface {
	actionName() string
}

type (
	NextStep struct{}
	PrevStep struct{}
	// SetStep jumps directly; out-of-range targets are ignored.
	SetStep struct{ Step int }

	SetField             struct{ Name, Value string }
	SetCountryField      struct{ Name, Value string }
	SetBusinessTypeField struct{ Name, Value string }
	// ClearCountryFields drops every country-specific value, used when the
	// country selection changes.
	ClearCountryFields struct{}
	// ClearBusinessTypeFields is the business-type counterpart.
	ClearBusinessTypeFields struct{}

	// SetDocument stages File under DocumentType; a nil File clears the slot,
	// every file of a multi-file slot included.
	SetDocument struct {
		DocumentType string
		File         *staging.File
	}
	// AddDocument appends File to the multi-file slot DocumentType. The
	// caller enforces the slot's file limit.
	AddDocument struct {
		DocumentType string
		File         *staging.File
	}
	// RemoveDocument drops file Index from a multi-file slot. Progress and
	// metadata of the slot are cleared since the indexes shift.
	RemoveDocument struct {
		DocumentType string
		Index        int
	}
	// DropDocuments removes Slots entirely, including their errors, used when
	// a selection change makes them undeclared.
	DropDocuments struct{ Slots []string }
	// SetError records Message for Field without touching it.
	SetError          struct{ Field, Message string }
	SetUploadProgress struct {
		DocumentType string
		Percent      int
	}
	SetDocumentMeta struct {
		DocumentType string
		Meta         models.Descriptor
	}
	Reset struct{}
)

func (NextStep) actionName() string                { return "NEXT_STEP" }
func (PrevStep) actionName() string                { return "PREV_STEP" }
func (SetStep) actionName() string                 { return "SET_STEP" }
func (SetField) actionName() string                { return "SET_FIELD" }
func (SetCountryField) actionName() string         { return "SET_COUNTRY_SPECIFIC_FIELD" }
func (SetBusinessTypeField) actionName() string    { return "SET_BUSINESS_TYPE_FIELD" }
func (ClearCountryFields) actionName() string      { return "CLEAR_COUNTRY_SPECIFIC_FIELDS" }
func (ClearBusinessTypeFields) actionName() string { return "CLEAR_BUSINESS_TYPE_FIELDS" }
func (SetDocument) actionName() string             { return "SET_DOCUMENT" }
func (AddDocument) actionName() string             { return "ADD_DOCUMENT" }
func (RemoveDocument) actionName() string          { return "REMOVE_DOCUMENT" }
func (DropDocuments) actionName() string           { return "DROP_DOCUMENTS" }
func (SetError) actionName() string                { return "SET_ERROR" }
func (SetUploadProgress) actionName() string       { return "SET_UPLOAD_PROGRESS" }
func (SetDocumentMeta) actionName() string         { return "SET_DOCUMENT_META" }
func (Reset) actionName() string                   { return "RESET" }

// ActionName returns the wire-style name of an action, for logs.
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}

// Reduce applies a to s and returns the next state. It performs no I/O and
// never mutates s. Unknown actions and illegal base field names return s
// unchanged.
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case NextStep:
		// Unclamped: the step runner guards the upper bound.
		s.CurrentStep++
		return s

	case PrevStep:
		if s.CurrentStep > 0 {
			s.CurrentStep--
		}
		return s

	case SetStep:
		if act.Step < StepBrief || act.Step > LastStep {
			return s
		}
		s.CurrentStep = act.Step
		return s

	case SetField:
		if !IsBaseField(act.Name) {
			return s
		}
		s.Data.Fields = with(s.Data.Fields, act.Name, act.Value)
		return touch(s, act.Name)

	case SetCountryField:
		if act.Name == "" {
			return s
		}
		s.Data.CountrySpecificFields = with(s.Data.CountrySpecificFields, act.Name, act.Value)
		return touch(s, act.Name)

	case SetBusinessTypeField:
		if act.Name == "" {
			return s
		}
		s.Data.BusinessTypeSpecificFields = with(s.Data.BusinessTypeSpecificFields, act.Name, act.Value)
		return touch(s, act.Name)

	case ClearCountryFields:
		if len(s.Data.CountrySpecificFields) == 0 {
			return s
		}
		s.Data.CountrySpecificFields = map[string]string{}
		return s

	case ClearBusinessTypeFields:
		if len(s.Data.BusinessTypeSpecificFields) == 0 {
			return s
		}
		s.Data.BusinessTypeSpecificFields = map[string]string{}
		return s

	case SetDocument:
		if act.DocumentType == "" {
			return s
		}
		s.Data.Documents = with(s.Data.Documents, act.DocumentType, act.File)
		if act.File == nil {
			s.Data.DocumentLists = without(s.Data.DocumentLists, act.DocumentType)
			s = dropDocumentStatus(s, act.DocumentType)
		}
		return touch(s, act.DocumentType)

	case AddDocument:
		if act.DocumentType == "" || act.File == nil {
			return s
		}
		prev := s.Data.DocumentLists[act.DocumentType]
		list := make([]*staging.File, len(prev), len(prev)+1)
		copy(list, prev)
		s.Data.DocumentLists = with(s.Data.DocumentLists, act.DocumentType, append(list, act.File))
		return touch(s, act.DocumentType)

	case RemoveDocument:
		prev := s.Data.DocumentLists[act.DocumentType]
		if act.Index < 0 || act.Index >= len(prev) {
			return s
		}
		list := make([]*staging.File, 0, len(prev)-1)
		list = append(list, prev[:act.Index]...)
		list = append(list, prev[act.Index+1:]...)
		if len(list) == 0 {
			s.Data.DocumentLists = without(s.Data.DocumentLists, act.DocumentType)
		} else {
			s.Data.DocumentLists = with(s.Data.DocumentLists, act.DocumentType, list)
		}
		s = dropDocumentStatus(s, act.DocumentType)
		return touch(s, act.DocumentType)

	case DropDocuments:
		for _, slot := range act.Slots {
			s.Data.Documents = without(s.Data.Documents, slot)
			s.Data.DocumentLists = without(s.Data.DocumentLists, slot)
			s = dropDocumentStatus(s, slot)
			s.Errors = without(s.Errors, slot)
			s.Touched = without(s.Touched, slot)
		}
		return s

	case SetError:
		if act.Field == "" {
			return s
		}
		s.Errors = with(s.Errors, act.Field, act.Message)
		return s

	case SetUploadProgress:
		if act.DocumentType == "" {
			return s
		}
		pct := act.Percent
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		s.Data.DocumentsProgress = with(s.Data.DocumentsProgress, act.DocumentType, pct)
		return s

	case SetDocumentMeta:
		if act.DocumentType == "" {
			return s
		}
		s.Data.DocumentsMeta = with(s.Data.DocumentsMeta, act.DocumentType, act.Meta)
		return s

	case Reset:
		return InitialState()

	default:
		return s
	}
}

// dropDocumentStatus removes the progress and metadata recorded for slot
// and for every file of it.
func dropDocumentStatus(s State, slot string) State {
	s.Data.DocumentsProgress = withoutSlot(s.Data.DocumentsProgress, slot)
	s.Data.DocumentsMeta = withoutSlot(s.Data.DocumentsMeta, slot)
	return s
}

func withoutSlot[V any](m map[string]V, slot string) map[string]V {
	out := without(m, slot)
	for k := range out {
		if isFileKeyOf(k, slot) {
			out = without(out, k)
		}
	}
	return out
}

// touch clears the error and marks the key touched.
func touch(s State, key string) State {
	s.Errors = with(s.Errors, key, "")
	s.Touched = with(s.Touched, key, true)
	return s
}

func with[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	out := copyMap(m)
	out[k] = v
	return out
}

func without[K comparable, V any](m map[K]V, k K) map[K]V {
	if _, ok := m[k]; !ok {
		return m
	}
	out := copyMap(m)
	delete(out, k)
	return out
}
