package form

import (
	"fmt"
	"strings"
	"sync"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/validation"
	"sme-onboarding/internal/models"
	"sme-onboarding/internal/onboarding/staging"
	"sme-onboarding/pkg/registry"
)

// Wizard owns the state of one onboarding session. All transitions go
// through Dispatch, which serialises them behind a mutex.
type Wizard struct {
	registry *registry.Registry
	stager   *staging.Stager
	logger   logger.Logger

	mu    sync.Mutex
	state State
}

func NewWizard(reg *registry.Registry, stager *staging.Stager, log logger.Logger) *Wizard {
	return &Wizard{
		registry: reg,
		stager:   stager,
		logger:   log.WithFields(map[string]interface{}{"component": "wizard"}),
		state:    InitialState(),
	}
}

// Registry returns the tables backing the dynamic schema.
func (w *Wizard) Registry() *registry.Registry {
	return w.registry
}

// State returns a snapshot safe to read without further locking.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

// Dispatch applies a to the current state and returns the new snapshot.
func (w *Wizard) Dispatch(a Action) State {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = Reduce(w.state, a)
	w.logger.Debug("Dispatched", map[string]interface{}{
		"action": ActionName(a),
		"step":   w.state.CurrentStep,
	})
	return w.state.Clone()
}

// Restore replaces the state wholesale, e.g. from a saved draft.
func (w *Wizard) Restore(s State) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = s.Clone()
}

func (w *Wizard) Next() State { return w.Dispatch(NextStep{}) }
func (w *Wizard) Prev() State { return w.Dispatch(PrevStep{}) }

// GoTo jumps to step; out-of-range steps leave the state unchanged.
func (w *Wizard) GoTo(step int) State { return w.Dispatch(SetStep{Step: step}) }

// SetField writes a base field. Changing the country or business type
// drops the values and document slots that belonged to the previous
// selection.
func (w *Wizard) SetField(name, value string) error {
	if !IsBaseField(name) {
		return stderrors.NewUnknownFieldError("base", name)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	prev := w.state.Data.Fields[name]
	w.state = Reduce(w.state, SetField{Name: name, Value: value})
	if prev == value {
		return nil
	}
	switch name {
	case "country":
		w.state = Reduce(w.state, ClearCountryFields{})
		w.dropUndeclaredDocuments()
	case "businessType":
		w.state = Reduce(w.state, ClearBusinessTypeFields{})
		w.dropUndeclaredDocuments()
	}
	return nil
}

// dropUndeclaredDocuments releases and removes every staged slot the
// current selection no longer declares. Callers hold w.mu.
func (w *Wizard) dropUndeclaredDocuments() {
	var stale []string
	for _, slot := range w.state.StagedSlots() {
		if !w.isLegalSlot(w.state, slot) {
			w.releaseSlot(slot)
			stale = append(stale, slot)
		}
	}
	if len(stale) == 0 {
		return
	}
	w.state = Reduce(w.state, DropDocuments{Slots: stale})
	w.logger.Info("Dropped documents of previous selection", map[string]interface{}{
		"slots": stale,
	})
}

// releaseSlot invalidates the preview handles of every file in slot.
func (w *Wizard) releaseSlot(slot string) {
	for _, f := range w.state.Files(slot) {
		w.stager.Release(f.Handle)
	}
}

// SetCountryField writes a field declared by the selected country.
func (w *Wizard) SetCountryField(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.registry.CountryField(w.state.Country(), name); !ok {
		return stderrors.NewUnknownFieldError("country-specific", name)
	}
	w.state = Reduce(w.state, SetCountryField{Name: name, Value: value})
	return nil
}

// SetBusinessTypeField writes a field declared by the selected business type.
func (w *Wizard) SetBusinessTypeField(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.registry.BusinessTypeField(w.state.BusinessType(), name); !ok {
		return stderrors.NewUnknownFieldError("business-type", name)
	}
	w.state = Reduce(w.state, SetBusinessTypeField{Name: name, Value: value})
	return nil
}

// CountryFields returns the fields declared by the selected country.
func (w *Wizard) CountryFields() []registry.FieldSpec {
	c, ok := w.registry.Country(w.State().Country())
	if !ok {
		return nil
	}
	return c.Fields
}

// BusinessTypeFields returns the fields declared by the selected business type.
func (w *Wizard) BusinessTypeFields() []registry.FieldSpec {
	b, ok := w.registry.BusinessType(w.State().BusinessType())
	if !ok {
		return nil
	}
	return b.Fields
}

// RequiredDocuments derives the required keys from the current selection.
func (w *Wizard) RequiredDocuments() []string {
	s := w.State()
	return w.registry.RequiredDocuments(s.Country(), s.BusinessType())
}

// DocumentSlots lists every legal slot: fixed slots first, then declared
// keys, then SupportingSlot.
func (w *Wizard) DocumentSlots() []string {
	s := w.State()
	return documentSlots(w.registry, s)
}

func documentSlots(reg *registry.Registry, s State) []string {
	out := append([]string(nil), FixedDocumentSlots...)
	for _, d := range reg.Documents(s.Country(), s.BusinessType()) {
		if _, fixed := FixedDocumentLabels[d.Key]; fixed || d.Key == SupportingSlot {
			continue
		}
		out = append(out, d.Key)
	}
	return append(out, SupportingSlot)
}

// slotSpec returns the declaration behind slot. SupportingSlot always has
// one; fixed slots never do.
func (w *Wizard) slotSpec(s State, slot string) (*registry.DocumentSpec, bool) {
	if slot == SupportingSlot {
		return &registry.DocumentSpec{Key: SupportingSlot, Label: SupportingLabel, Multiple: true}, true
	}
	return w.registry.Document(s.Country(), s.BusinessType(), slot)
}

// IsMultiFile reports whether slot holds a list of files.
func (w *Wizard) IsMultiFile(slot string) bool {
	d, ok := w.slotSpec(w.State(), slot)
	return ok && d.Multiple
}

// FileLimit is how many files slot accepts under the current selection.
func (w *Wizard) FileLimit(slot string) int {
	if d, ok := w.slotSpec(w.State(), slot); ok {
		return d.FileLimit()
	}
	return 1
}

// DocumentLabel returns a human label for a slot.
func (w *Wizard) DocumentLabel(slot string) string {
	if label, ok := FixedDocumentLabels[slot]; ok {
		return label
	}
	if d, ok := w.slotSpec(w.State(), slot); ok {
		return d.Label
	}
	return slot
}

func (w *Wizard) isLegalSlot(s State, slot string) bool {
	for _, k := range documentSlots(w.registry, s) {
		if k == slot {
			return true
		}
	}
	return false
}

// StageDocument validates f for slot and stages it. A single-file slot is
// replaced; a multi-file slot gets f appended until its limit is reached.
// On rejection only the slot's error is set and what was staged stays.
func (w *Wizard) StageDocument(slot string, f *staging.File) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.isLegalSlot(w.state, slot) {
		return stderrors.NewUnknownFieldError("document", slot)
	}

	opts := w.stager.Defaults()
	d, declared := w.slotSpec(w.state, slot)
	if declared {
		opts = d.FileOptions(opts)
	}
	multi := declared && d.Multiple
	if multi && len(w.state.Data.DocumentLists[slot]) >= d.FileLimit() {
		stdErr := stderrors.NewFileLimitExceededError(slot, d.FileLimit())
		w.state = Reduce(w.state, SetError{Field: slot, Message: stdErr.Message})
		return stdErr
	}

	staged, stdErr := w.stager.Accept(f, opts)
	if stdErr != nil {
		w.state = Reduce(w.state, SetError{Field: slot, Message: stdErr.Message})
		return stdErr
	}

	if multi {
		w.state = Reduce(w.state, AddDocument{DocumentType: slot, File: staged})
	} else {
		if prev := w.state.Data.Documents[slot]; prev != nil {
			w.stager.Release(prev.Handle)
		}
		w.state = Reduce(w.state, SetDocument{DocumentType: slot, File: staged})
	}
	w.logger.Info("Document staged", map[string]interface{}{
		"slot":  slot,
		"file":  staged.Name,
		"size":  staged.Size,
		"count": len(w.state.Files(slot)),
	})
	return nil
}

// RemoveDocumentFile drops file index from a multi-file slot and releases
// its preview handle. It reports whether anything was removed.
func (w *Wizard) RemoveDocumentFile(slot string, index int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	list := w.state.Data.DocumentLists[slot]
	if index < 0 || index >= len(list) {
		return false
	}
	w.stager.Release(list[index].Handle)
	w.state = Reduce(w.state, RemoveDocument{DocumentType: slot, Index: index})
	return true
}

// ClearDocument empties a slot and releases its preview handles.
func (w *Wizard) ClearDocument(slot string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.releaseSlot(slot)
	w.state = Reduce(w.state, SetDocument{DocumentType: slot, File: nil})
}

// SetUploadProgress records transient upload progress for a slot.
func (w *Wizard) SetUploadProgress(slot string, percent int) {
	w.Dispatch(SetUploadProgress{DocumentType: slot, Percent: percent})
}

// SetDocumentMeta records the descriptor of a confirmed upload.
func (w *Wizard) SetDocumentMeta(slot string, meta models.Descriptor) {
	w.Dispatch(SetDocumentMeta{DocumentType: slot, Meta: meta})
}

// Reset returns to the initial state and releases every preview handle.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, slot := range w.state.StagedSlots() {
		w.releaseSlot(slot)
	}
	w.stager.ReleaseAll()
	w.state = Reduce(w.state, Reset{})
}

// ValidateField validates one field by name, searching base fields, then
// the selected country's fields, then the selected business type's. A
// failure is recorded with SetError and its message returned.
func (w *Wizard) ValidateField(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	msg := w.validateLocked(name)
	if msg != "" {
		w.state = Reduce(w.state, SetError{Field: name, Message: msg})
	}
	return msg
}

func (w *Wizard) validateLocked(name string) string {
	s := w.state
	if IsBaseField(name) {
		msg := validation.ValidateField(name, s.Data.Fields[name], true)
		if msg != "" {
			return msg
		}
		return w.validateSelection(name, s.Data.Fields[name])
	}
	if f, ok := w.registry.CountryField(s.Country(), name); ok {
		return f.Validate(s.Data.CountrySpecificFields[name])
	}
	if f, ok := w.registry.BusinessTypeField(s.BusinessType(), name); ok {
		return f.Validate(s.Data.BusinessTypeSpecificFields[name])
	}
	return ""
}

// validateSelection rejects country and business type values the registry does not know.
func (w *Wizard) validateSelection(name, value string) string {
	switch name {
	case "country":
		if _, ok := w.registry.Country(strings.TrimSpace(value)); !ok {
			return "Unsupported country"
		}
	case "businessType":
		if _, ok := w.registry.BusinessType(strings.TrimSpace(value)); !ok {
			return "Unsupported business type"
		}
	}
	return ""
}

// ValidateStep validates every field the step collects and returns true
// when all pass. Steps without inputs always pass.
func (w *Wizard) ValidateStep(step int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	valid := true
	fail := func(field, msg string) {
		valid = false
		w.state = Reduce(w.state, SetError{Field: field, Message: msg})
	}

	switch step {
	case StepBasicInfo:
		for _, name := range StepFields[StepBasicInfo] {
			if msg := w.validateLocked(name); msg != "" {
				fail(name, msg)
			}
		}
		if c, ok := w.registry.Country(w.state.Country()); ok {
			for i := range c.Fields {
				if msg := c.Fields[i].Validate(w.state.Data.CountrySpecificFields[c.Fields[i].Key]); msg != "" {
					fail(c.Fields[i].Key, msg)
				}
			}
		}
		if b, ok := w.registry.BusinessType(w.state.BusinessType()); ok {
			for i := range b.Fields {
				if msg := b.Fields[i].Validate(w.state.Data.BusinessTypeSpecificFields[b.Fields[i].Key]); msg != "" {
					fail(b.Fields[i].Key, msg)
				}
			}
		}

	case StepFinancial:
		for _, name := range StepFields[StepFinancial] {
			if msg := w.validateLocked(name); msg != "" {
				fail(name, msg)
			}
		}

	case StepDocuments:
		for _, slot := range FixedDocumentSlots {
			if !w.state.HasDocument(slot) {
				fail(slot, fmt.Sprintf("%s is required", FixedDocumentLabels[slot]))
			}
		}
		country, bt := w.state.Country(), w.state.BusinessType()
		for _, key := range w.registry.RequiredDocuments(country, bt) {
			if !w.state.HasDocument(key) {
				label := key
				if d, ok := w.registry.Document(country, bt, key); ok {
					label = d.Label
				}
				fail(key, fmt.Sprintf("%s is required", label))
			}
		}
	}
	return valid
}

// FormData flattens the answers for the application payload. Only values
// declared by the current selection are included.
func (w *Wizard) FormData() map[string]interface{} {
	s := w.State()
	out := make(map[string]interface{}, len(s.Data.Fields)+2)
	for _, name := range BaseFields {
		out[name] = s.Data.Fields[name]
	}
	if c, ok := w.registry.Country(s.Country()); ok && len(c.Fields) > 0 {
		cf := make(map[string]string, len(c.Fields))
		for _, f := range c.Fields {
			cf[f.Key] = s.Data.CountrySpecificFields[f.Key]
		}
		out["countrySpecificFields"] = cf
	}
	if b, ok := w.registry.BusinessType(s.BusinessType()); ok && len(b.Fields) > 0 {
		bf := make(map[string]string, len(b.Fields))
		for _, f := range b.Fields {
			bf[f.Key] = s.Data.BusinessTypeSpecificFields[f.Key]
		}
		out["businessTypeSpecificFields"] = bf
	}
	return out
}
