package main

import (
	"bufio"
	"errors"
	"strings"

	"sme-onboarding/internal/models"

	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and cache the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := c.app
			ctx := cmd.Context()
			if password == "" {
				var err error
				if password, err = promptLine(cmd, "Password: "); err != nil {
					return err
				}
			}

			resp, err := a.portal.Login(ctx, email, password)
			if err != nil {
				return err
			}
			sess := &models.Session{
				UserID: resp.UserID,
				Email:  resp.Email,
				Role:   resp.Role,
				Token:  resp.AccessToken,
			}
			a.session = sess
			printf(cmd, "Signed in as %s %s (%s)\n", resp.FirstName, resp.LastName, resp.Role)

			if a.sessions == nil {
				printf(cmd, "Session not cached (drafts disabled). Set portal.user_id=%s to reuse it.\n", resp.UserID)
				return nil
			}
			return a.sessions.Save(ctx, sess)
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var req models.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an SME account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				var err error
				if req.Password, err = promptLine(cmd, "Password: "); err != nil {
					return err
				}
			}
			resp, err := c.app.portal.Register(cmd.Context(), &req)
			if err != nil {
				return err
			}
			printf(cmd, "Registered %s as %s. Run `onboard login -e %s` to sign in.\n", resp.UserID, resp.Role, req.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&req.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVarP(&req.Email, "email", "e", "", "Account email")
	cmd.Flags().StringVarP(&req.Password, "password", "p", "", "Password (prompted when omitted)")
	cmd.Flags().StringVar(&req.MobileNumber, "mobile", "", "Mobile number")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the cached session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.sessions == nil {
				return nil
			}
			if err := c.app.sessions.Clear(cmd.Context()); err != nil {
				return err
			}
			printf(cmd, "Signed out.\n")
			return nil
		},
	}
}

func promptLine(cmd *cobra.Command, prompt string) (string, error) {
	printf(cmd, "%s", prompt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err != nil {
			return "", err
		}
		return "", errors.New("empty input")
	}
	return line, nil
}
