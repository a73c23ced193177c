package main

import (
	"context"
	"errors"
	"fmt"

	"sme-onboarding/internal/common/validation"
	"sme-onboarding/internal/onboarding/form"
	"sme-onboarding/internal/onboarding/steps"
	"sme-onboarding/internal/onboarding/submission"
	"sme-onboarding/internal/store"

	"github.com/spf13/cobra"
)

func (c *cli) wizardCmd() *cobra.Command {
	var (
		resume string
		gate   bool
	)
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Fill in and submit an application interactively",
		Long: `Walks through the five onboarding steps: business selection, basic
information, financial details, documents, and review. Leaving before
submission saves a draft when drafts are enabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			w := a.newWizard()

			if resume != "" {
				if err := c.resumeDraft(cmd, w, resume); err != nil {
					return err
				}
			}

			runner := steps.NewRunner(w, cmd.InOrStdin(), cmd.OutOrStdout(), steps.Options{GateOnValidation: gate}, a.log)
			outcome, runErr := runner.Run(ctx)
			if outcome != steps.OutcomeSubmit {
				c.saveDraft(cmd, w, resume)
				if errors.Is(runErr, steps.ErrInputClosed) || errors.Is(runErr, context.Canceled) {
					return nil
				}
				return runErr
			}

			who, err := a.submitter()
			if err != nil {
				c.saveDraft(cmd, w, resume)
				return err
			}
			result, err := a.newOrchestrator().Submit(ctx, w, who)
			printSubmission(cmd, w, result)
			if err != nil {
				c.saveDraft(cmd, w, resume)
				return err
			}
			if resume != "" && a.drafts != nil {
				_ = a.drafts.Delete(ctx, resume)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&resume, "resume", "", "Draft ID to resume")
	cmd.Flags().BoolVar(&gate, "gate", false, "Do not leave a step until it validates")
	return cmd
}

func (c *cli) resumeDraft(cmd *cobra.Command, w *form.Wizard, id string) error {
	if c.app.drafts == nil {
		return errors.New("drafts are disabled: set drafts.enabled and database.redis.address")
	}
	d, err := c.app.drafts.Load(cmd.Context(), id)
	if err != nil {
		return err
	}
	for _, p := range d.Apply(w) {
		printf(cmd, "warning: %s\n", p)
	}
	printf(cmd, "Resumed draft %s at step %d.\n", id, w.State().CurrentStep+1)
	return nil
}

// saveDraft keeps unfinished work. id reuses an existing draft key.
func (c *cli) saveDraft(cmd *cobra.Command, w *form.Wizard, id string) {
	a := c.app
	if a.drafts == nil {
		return
	}
	d := store.FromState(w.State(), a.userID())
	d.ID = id
	saved, err := a.drafts.Save(context.WithoutCancel(cmd.Context()), d)
	if err != nil {
		a.log.Warn("draft save failed", map[string]interface{}{"error": err.Error()})
		return
	}
	printf(cmd, "\nDraft saved. Resume with: onboard wizard --resume %s\n", saved)
}

func printSubmission(cmd *cobra.Command, w *form.Wizard, result *submission.Result) {
	if result == nil {
		return
	}
	printf(cmd, "\nApplication %s\n", result.ApplicationID)
	for _, d := range result.Documents {
		printf(cmd, "  uploaded %-28s %s (%s)\n", w.DocumentLabel(d.DocumentType), d.Filename, validation.FormatFileSize(d.Size))
	}
	if result.SubmissionID != "" {
		printf(cmd, "  ledger entry %s\n", result.SubmissionID)
	}
}

// stepErrors validates the data-entry steps and returns the recorded
// messages keyed by field or slot.
func stepErrors(w *form.Wizard) map[string]string {
	for _, step := range []int{form.StepBasicInfo, form.StepFinancial, form.StepDocuments} {
		w.ValidateStep(step)
	}
	out := make(map[string]string)
	for k, msg := range w.State().Errors {
		if msg != "" {
			out[k] = msg
		}
	}
	return out
}

func formatErrors(errs map[string]string) string {
	return fmt.Sprintf("%d field(s) need attention", len(errs))
}
