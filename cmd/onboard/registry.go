package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"sme-onboarding/pkg/registry"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (c *cli) registryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the country and business type registry",
	}
	cmd.AddCommand(c.registryShowCmd())
	cmd.AddCommand(c.registryCheckCmd())
	return cmd
}

func (c *cli) registryShowCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := snapshot(c.app.registry)
			out := cmd.OutOrStdout()
			switch format {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				defer enc.Close()
				return enc.Encode(f)
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(f)
			case "text":
				writeRegistryText(cmd, f)
				return nil
			}
			return fmt.Errorf("unknown format %q (text, yaml, json)", format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "Output format: text, yaml or json")
	return cmd
}

// registryCheckCmd validates an override file before it is configured.
func (c *cli) registryCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check [file]",
		Short: "Validate a registry override file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			f, err := registry.ParseFile(data)
			if err != nil {
				return err
			}
			merged, err := c.app.registry.Merge(f)
			if err != nil {
				return err
			}
			printf(cmd, "%s is valid: %d countries, %d business types after merge\n",
				args[0], len(merged.Countries()), len(merged.BusinessTypes()))
			return nil
		},
	}
}

func snapshot(r *registry.Registry) *registry.File {
	f := &registry.File{Version: "1"}
	for _, co := range r.Countries() {
		f.Countries = append(f.Countries, *co)
	}
	for _, b := range r.BusinessTypes() {
		f.BusinessTypes = append(f.BusinessTypes, *b)
	}
	return f
}

func writeRegistryText(cmd *cobra.Command, f *registry.File) {
	printf(cmd, "Countries\n")
	for _, co := range f.Countries {
		printf(cmd, "  %s  %s (%s)\n", co.Code, co.Name, co.Currency)
		writeFields(cmd, co.Fields)
		writeDocuments(cmd, co.Documents)
	}
	printf(cmd, "\nBusiness types\n")
	for _, b := range f.BusinessTypes {
		printf(cmd, "  %s  %s\n", b.ID, b.Label)
		writeFields(cmd, b.Fields)
		writeDocuments(cmd, b.Documents)
	}
}

func writeFields(cmd *cobra.Command, fields []registry.FieldSpec) {
	for _, fs := range fields {
		req := "optional"
		if fs.Required {
			req = "required"
		}
		printf(cmd, "      field %-28s %-8s %s\n", fs.Key, req, fs.Label)
	}
}

func writeDocuments(cmd *cobra.Command, docs []registry.DocumentSpec) {
	for _, d := range docs {
		req := "optional"
		if d.Required {
			req = "required"
		}
		printf(cmd, "      doc   %-28s %-8s %s [%s]\n", d.Key, req, d.Label, strings.Join(d.Accept, " "))
	}
}
