package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"sme-onboarding/internal/onboarding/form"
	"sme-onboarding/internal/store"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// applicationFile is the batch input for submit and validate.
//
//	country: SG
//	businessType: sole_proprietorship
//	fields:
//	  companyName: Acme Trading
//	countryFields:
//	  gstNumber: 12345678D
//	documents:
//	  kycDocument: ./docs/kyc.pdf
//	  supporting: [./docs/a.pdf, ./docs/b.pdf]
type applicationFile struct {
	Country            string                   `yaml:"country"`
	BusinessType       string                   `yaml:"businessType"`
	Fields             map[string]string        `yaml:"fields"`
	CountryFields      map[string]string        `yaml:"countryFields"`
	BusinessTypeFields map[string]string        `yaml:"businessTypeFields"`
	Documents          map[string]documentPaths `yaml:"documents"`
}

// documentPaths is one path or a list of paths for a multi-file slot.
type documentPaths []string

func (p *documentPaths) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*p = documentPaths{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*p = list
		return nil
	}
	return fmt.Errorf("line %d: document must be a path or a list of paths", node.Line)
}

func readApplicationFile(path string) (*applicationFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f applicationFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &f, nil
}

// draft maps the file onto a draft so it loads through the same path as
// a resumed session. Relative document paths are resolved against dir.
func (f *applicationFile) draft(dir string) *store.Draft {
	d := &store.Draft{
		Step:               form.StepReview,
		Fields:             make(map[string]string, len(f.Fields)+2),
		CountryFields:      f.CountryFields,
		BusinessTypeFields: f.BusinessTypeFields,
		Documents:          make(map[string]store.DraftFile, len(f.Documents)),
		DocumentLists:      make(map[string][]store.DraftFile),
	}
	for k, v := range f.Fields {
		d.Fields[k] = v
	}
	if f.Country != "" {
		d.Fields["country"] = f.Country
	}
	if f.BusinessType != "" {
		d.Fields["businessType"] = f.BusinessType
	}
	for slot, paths := range f.Documents {
		files := make([]store.DraftFile, 0, len(paths))
		for _, p := range paths {
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
			files = append(files, store.DraftFile{Name: filepath.Base(p), Path: p})
		}
		switch len(files) {
		case 0:
		case 1:
			d.Documents[slot] = files[0]
		default:
			d.DocumentLists[slot] = files
		}
	}
	return d
}

// loadApplication fills a wizard from path and reports load problems and
// validation errors.
func (c *cli) loadApplication(cmd *cobra.Command, path string) (*form.Wizard, bool, error) {
	f, err := readApplicationFile(path)
	if err != nil {
		return nil, false, err
	}
	w := c.app.newWizard()
	ok := true
	for _, p := range f.draft(filepath.Dir(path)).Apply(w) {
		printf(cmd, "  ! %s\n", p)
		ok = false
	}

	errs := stepErrors(w)
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		printf(cmd, "  %-28s %s\n", k, errs[k])
	}
	return w, ok && len(errs) == 0, nil
}

func (c *cli) validateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an application file without submitting it",
		RunE: func(cmd *cobra.Command, args []string) error {
			w, ok, err := c.loadApplication(cmd, file)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s: %s", file, formatErrors(stepErrors(w)))
			}
			printf(cmd, "%s is complete (%d documents staged)\n", file, countStaged(w))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Application YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (c *cli) submitCmd() *cobra.Command {
	var (
		file  string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an application described in a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			w, ok, err := c.loadApplication(cmd, file)
			if err != nil {
				return err
			}
			if !ok && !force {
				return fmt.Errorf("%s: %s (use --force to submit anyway)", file, formatErrors(stepErrors(w)))
			}

			who, err := a.submitter()
			if err != nil {
				return err
			}
			result, err := a.newOrchestrator().Submit(cmd.Context(), w, who)
			printSubmission(cmd, w, result)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Application YAML file")
	cmd.Flags().BoolVar(&force, "force", false, "Submit even when fields fail validation")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func countStaged(w *form.Wizard) int {
	s := w.State()
	n := 0
	for _, slot := range s.StagedSlots() {
		n += len(s.Files(slot))
	}
	return n
}
