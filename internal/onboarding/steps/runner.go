// Package steps drives a form.Wizard from a line-oriented terminal: one
// prompt per field, one screen per step, and a review before submission.
package steps

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/onboarding/form"
	"sme-onboarding/internal/onboarding/staging"
)

// Typed at any prompt.
const (
	cmdBack  = ":back"
	cmdQuit  = ":quit"
	cmdClear = "-"
)

// ErrInputClosed is returned when input ends before the wizard finishes.
var ErrInputClosed = errors.New("input closed before the application was complete")

type Outcome int

const (
	// OutcomeQuit means the user left without submitting.
	OutcomeQuit Outcome = iota
	// OutcomeSubmit means the user confirmed the review.
	OutcomeSubmit
)

type Options struct {
	// GateOnValidation keeps the user on a step until ValidateStep passes.
	GateOnValidation bool
}

type nav int

const (
	navNext nav = iota
	navBack
	navQuit
)

type Runner struct {
	wizard *form.Wizard
	in     *bufio.Reader
	out    io.Writer
	opts   Options
	logger logger.Logger
}

func NewRunner(w *form.Wizard, in io.Reader, out io.Writer, opts Options, log logger.Logger) *Runner {
	return &Runner{
		wizard: w,
		in:     bufio.NewReader(in),
		out:    out,
		opts:   opts,
		logger: log.WithFields(map[string]interface{}{"component": "steps"}),
	}
}

// Run walks the wizard from its current step until the user submits or
// quits. It never advances past the review step.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	for {
		if err := ctx.Err(); err != nil {
			return OutcomeQuit, err
		}

		step := r.wizard.State().CurrentStep
		if step < 0 || step > form.LastStep {
			r.wizard.GoTo(form.LastStep)
			continue
		}
		r.header(step)

		var (
			next nav
			err  error
		)
		switch step {
		case form.StepBrief:
			next, err = r.brief()
		case form.StepBasicInfo:
			next, err = r.basicInfo()
		case form.StepFinancial:
			next, err = r.baseFields(form.StepFields[form.StepFinancial])
		case form.StepDocuments:
			next, err = r.documents()
		case form.StepReview:
			outcome, done, err := r.review()
			if err != nil || done {
				return outcome, err
			}
			continue
		}
		if err != nil {
			return OutcomeQuit, err
		}

		switch next {
		case navQuit:
			return OutcomeQuit, nil
		case navBack:
			r.wizard.Prev()
		case navNext:
			if !r.checkStep(step) && r.opts.GateOnValidation {
				fmt.Fprintln(r.out, "Please fix the errors above before continuing.")
				continue
			}
			r.wizard.Next()
		}
	}
}

func (r *Runner) header(step int) {
	fmt.Fprintf(r.out, "\n== Step %d of %d: %s ==\n", step+1, form.LastStep+1, form.StepTitles[step])
}

// checkStep runs step validation and prints every failure it recorded.
func (r *Runner) checkStep(step int) bool {
	if r.wizard.ValidateStep(step) {
		return true
	}
	s := r.wizard.State()
	for _, name := range r.stepKeys(step) {
		if msg := s.Errors[name]; msg != "" {
			fmt.Fprintf(r.out, "  ! %s\n", msg)
		}
	}
	r.logger.Debug("step has errors", map[string]interface{}{"step": step})
	return false
}

func (r *Runner) stepKeys(step int) []string {
	switch step {
	case form.StepBasicInfo:
		keys := append([]string(nil), form.StepFields[form.StepBasicInfo]...)
		for _, f := range r.wizard.CountryFields() {
			keys = append(keys, f.Key)
		}
		for _, f := range r.wizard.BusinessTypeFields() {
			keys = append(keys, f.Key)
		}
		return keys
	case form.StepFinancial:
		return form.StepFields[form.StepFinancial]
	case form.StepDocuments:
		return r.wizard.DocumentSlots()
	}
	return nil
}

func (r *Runner) brief() (nav, error) {
	fmt.Fprintln(r.out, "Before we get started, tell us about your business.")
	fmt.Fprintln(r.out, "Type :back to return to the previous step or :quit to leave at any prompt.")

	reg := r.wizard.Registry()
	fmt.Fprintln(r.out, "Countries:")
	for _, c := range reg.Countries() {
		fmt.Fprintf(r.out, "  %-4s %s\n", c.Code, c.Name)
	}
	if next, err := r.selection("country", "Country of Operation"); next != navNext || err != nil {
		return next, err
	}

	fmt.Fprintln(r.out, "Business types:")
	for _, b := range reg.BusinessTypes() {
		fmt.Fprintf(r.out, "  %-22s %s\n", b.ID, b.Label)
	}
	return r.selection("businessType", "Business Type")
}

// selection is asked until the registry accepts the value, since later
// steps depend on it.
func (r *Runner) selection(name, label string) (nav, error) {
	for {
		next, err := r.field(name, label, r.wizard.State().Field(name), r.wizard.SetField)
		if next != navNext || err != nil {
			return next, err
		}
		if r.wizard.State().Errors[name] == "" {
			return navNext, nil
		}
	}
}

func (r *Runner) basicInfo() (nav, error) {
	var rest []string
	for _, name := range form.StepFields[form.StepBasicInfo] {
		if name != "country" && name != "businessType" {
			rest = append(rest, name)
		}
	}
	if next, err := r.baseFields(rest); next != navNext || err != nil {
		return next, err
	}

	s := r.wizard.State()
	for _, f := range r.wizard.CountryFields() {
		next, err := r.field(f.Key, dynamicLabel(f.Label, f.Placeholder, f.Required), s.Data.CountrySpecificFields[f.Key], r.wizard.SetCountryField)
		if next != navNext || err != nil {
			return next, err
		}
	}
	for _, f := range r.wizard.BusinessTypeFields() {
		next, err := r.field(f.Key, dynamicLabel(f.Label, f.Placeholder, f.Required), s.Data.BusinessTypeSpecificFields[f.Key], r.wizard.SetBusinessTypeField)
		if next != navNext || err != nil {
			return next, err
		}
	}
	return navNext, nil
}

func dynamicLabel(label, placeholder string, required bool) string {
	if !required {
		label += " (optional)"
	}
	if placeholder != "" {
		label += ", " + placeholder
	}
	return label
}

func (r *Runner) baseFields(names []string) (nav, error) {
	for _, name := range names {
		next, err := r.field(name, form.BaseFieldLabels[name], r.wizard.State().Field(name), r.wizard.SetField)
		if next != navNext || err != nil {
			return next, err
		}
	}
	return navNext, nil
}

// field prompts once. An empty answer keeps the current value. The value
// is validated immediately and any message is shown but not enforced.
func (r *Runner) field(name, label, current string, set func(name, value string) error) (nav, error) {
	line, next, err := r.ask(label, current)
	if next != navNext || err != nil {
		return next, err
	}
	if line == "" {
		line = current
	}
	if err := set(name, line); err != nil {
		fmt.Fprintf(r.out, "  ! %s\n", stderrors.Normalize(err).Message)
		return navNext, nil
	}
	if msg := r.wizard.ValidateField(name); msg != "" {
		fmt.Fprintf(r.out, "  ! %s\n", msg)
	}
	return navNext, nil
}

func (r *Runner) documents() (nav, error) {
	fmt.Fprintf(r.out, "Enter a file path for each document, Enter to keep, %q to clear.\n", cmdClear)
	for _, slot := range r.wizard.DocumentSlots() {
		if next, err := r.document(slot); next != navNext || err != nil {
			return next, err
		}
	}
	return navNext, nil
}

func (r *Runner) document(slot string) (nav, error) {
	if r.wizard.IsMultiFile(slot) {
		return r.documentList(slot)
	}
	current := ""
	if f := r.wizard.State().Data.Documents[slot]; f != nil {
		current = f.Name
	}
	line, next, err := r.ask(r.wizard.DocumentLabel(slot), current)
	if next != navNext || err != nil {
		return next, err
	}

	switch line {
	case "":
		return navNext, nil
	case cmdClear:
		r.wizard.ClearDocument(slot)
		return navNext, nil
	}

	f, err := staging.FromPath(line)
	if err != nil {
		fmt.Fprintf(r.out, "  ! %s\n", err)
		return navNext, nil
	}
	if err := r.wizard.StageDocument(slot, f); err != nil {
		fmt.Fprintf(r.out, "  ! %s\n", stderrors.Normalize(err).Message)
	}
	return navNext, nil
}

// review prints the summary and handles the final choice. done is true
// when Run should return.
func (r *Runner) review() (Outcome, bool, error) {
	WriteReview(r.out, r.wizard)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "By submitting this application you confirm that all information provided is accurate and complete.")

	line, next, err := r.ask("Submit application? (y to submit, 1-3 to edit a step)", "")
	if err != nil {
		return OutcomeQuit, true, err
	}
	switch next {
	case navQuit:
		return OutcomeQuit, true, nil
	case navBack:
		r.wizard.Prev()
		return OutcomeQuit, false, nil
	}

	switch strings.ToLower(line) {
	case "y", "yes":
		if r.opts.GateOnValidation {
			for _, step := range []int{form.StepBasicInfo, form.StepFinancial, form.StepDocuments} {
				if !r.checkStep(step) {
					fmt.Fprintf(r.out, "Step %d has errors.\n", step)
					r.wizard.GoTo(step)
					return OutcomeQuit, false, nil
				}
			}
		}
		return OutcomeSubmit, true, nil
	case "n", "no":
		return OutcomeQuit, true, nil
	}
	if step, err := strconv.Atoi(line); err == nil && step >= form.StepBasicInfo && step <= form.StepDocuments {
		r.wizard.GoTo(step)
	}
	return OutcomeQuit, false, nil
}

// ask reads one trimmed line. EOF with nothing typed is ErrInputClosed.
func (r *Runner) ask(label, current string) (string, nav, error) {
	if current != "" {
		fmt.Fprintf(r.out, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(r.out, "%s: ", label)
	}
	line, err := r.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", navQuit, ErrInputClosed
		}
		return "", navQuit, err
	}
	line = strings.TrimSpace(line)
	switch line {
	case cmdBack:
		return "", navBack, nil
	case cmdQuit:
		return "", navQuit, nil
	}
	return line, navNext, nil
}

// documentList collects files for a multi-file slot, one path per prompt,
// until an empty line.
func (r *Runner) documentList(slot string) (nav, error) {
	label := r.wizard.DocumentLabel(slot)
	limit := r.wizard.FileLimit(slot)
	for {
		files := r.wizard.State().Files(slot)
		names := make([]string, len(files))
		for i, f := range files {
			names[i] = f.Name
		}
		prompt := fmt.Sprintf("%s (%d of %d, Enter when done)", label, len(files), limit)
		line, next, err := r.ask(prompt, strings.Join(names, ", "))
		if next != navNext || err != nil {
			return next, err
		}

		switch line {
		case "":
			return navNext, nil
		case cmdClear:
			r.wizard.ClearDocument(slot)
			continue
		}

		f, err := staging.FromPath(line)
		if err != nil {
			fmt.Fprintf(r.out, "  ! %s\n", err)
			continue
		}
		if err := r.wizard.StageDocument(slot, f); err != nil {
			fmt.Fprintf(r.out, "  ! %s\n", stderrors.Normalize(err).Message)
			if stderrors.HasCode(err, stderrors.ErrCodeFileLimitExceeded) {
				return navNext, nil
			}
		}
	}
}
