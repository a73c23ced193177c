package steps

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"sme-onboarding/internal/common/validation"
	"sme-onboarding/internal/onboarding/form"

	"github.com/dustin/go-humanize"
)

const notSelected = "Not selected"

// Item is one labelled line of the review summary.
type Item struct {
	Label string
	Value string
}

// Section groups review items under the step that collected them.
type Section struct {
	Title string
	Step  int
	Items []Item
}

// Review builds the read-only review of everything the wizard holds.
// Dynamic fields appear only when filled.
func Review(w *form.Wizard) []Section {
	s := w.State()
	reg := w.Registry()

	countryName := notSelected
	if c, ok := reg.Country(s.Country()); ok {
		countryName = c.Name
	}
	businessTypeName := notSelected
	if b, ok := reg.BusinessType(s.BusinessType()); ok {
		businessTypeName = b.Label
	}

	basic := []Item{
		{"Company Name", s.Field("companyName")},
		{"Registration Number", s.Field("registrationNumber")},
		{"Country", countryName},
		{"Business Type", businessTypeName},
		{"Email", s.Field("email")},
		{"Phone", s.Field("phone")},
	}
	for _, f := range w.CountryFields() {
		if v := s.Data.CountrySpecificFields[f.Key]; v != "" {
			basic = append(basic, Item{f.Label, v})
		}
	}
	for _, f := range w.BusinessTypeFields() {
		if v := s.Data.BusinessTypeSpecificFields[f.Key]; v != "" {
			basic = append(basic, Item{f.Label, v})
		}
	}

	financial := []Item{
		{"Bank Account Number", s.Field("bankAccountNumber")},
		{"SWIFT / BIC Code", s.Field("swift")},
		{"Account Currency", s.Field("currency")},
		{"Annual Revenue", formatRevenue(s.Field("currency"), s.Field("annualRevenue"))},
		{"Tax ID", s.Field("taxId")},
	}

	var docs []Item
	for _, slot := range w.DocumentSlots() {
		docs = append(docs, Item{w.DocumentLabel(slot), documentName(s, slot)})
	}

	return []Section{
		{Title: "Basic Information", Step: form.StepBasicInfo, Items: basic},
		{Title: "Financial Details", Step: form.StepFinancial, Items: financial},
		{Title: "Compliance & Documentation", Step: form.StepDocuments, Items: docs},
	}
}

// WriteReview renders Review as plain text.
func WriteReview(out io.Writer, w *form.Wizard) {
	for _, sec := range Review(w) {
		fmt.Fprintf(out, "\n%s (edit: %d)\n", sec.Title, sec.Step)
		width := 0
		for _, it := range sec.Items {
			if len(it.Label) > width {
				width = len(it.Label)
			}
		}
		for _, it := range sec.Items {
			fmt.Fprintf(out, "  %-*s  %s\n", width, it.Label, it.Value)
		}
	}
}

func documentName(s form.State, slot string) string {
	files := s.Files(slot)
	if len(files) == 0 {
		return "Not uploaded"
	}
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = fmt.Sprintf("%s (%s)", f.Name, validation.FormatFileSize(f.Size))
	}
	return strings.Join(names, ", ")
}

func formatRevenue(currency, raw string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return raw
	}
	return strings.TrimSpace(currency + " " + humanize.Commaf(v))
}
