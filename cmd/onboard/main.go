// cmd/onboard/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	stderrors "sme-onboarding/internal/common/errors"
	"sme-onboarding/internal/common/logger"
	"sme-onboarding/internal/common/metrics"

	"github.com/spf13/cobra"
)

var Version = "dev"

// cli carries global flags and the app built for the running command.
type cli struct {
	configPath string
	logLevel   string
	app        *app
}

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &cli{}
	root := c.rootCmd()
	cmd, err := root.ExecuteContextC(ctx)

	code := 0
	if err != nil {
		var log stderrors.Logger = logger.NewNoOpLogger()
		if c.app != nil {
			log = c.app.log
			c.app.dropSessionOn401(ctx, err)
		}
		code = stderrors.NewErrorHandler(log, os.Stderr).Handle(cmd.CommandPath(), err)
	}

	if c.app != nil {
		if werr := metrics.WriteTextfile(c.app.cfg.Metrics.Textfile); werr != nil {
			c.app.log.Warn("metrics textfile write failed", map[string]interface{}{"error": werr.Error()})
		}
		c.app.close()
	}
	return code
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "onboard",
		Short:         "SME cross-border payments onboarding client",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.configPath, c.logLevel)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Config file (default ./configs/config.yaml)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	root.AddCommand(c.wizardCmd())
	root.AddCommand(c.submitCmd())
	root.AddCommand(c.validateCmd())
	root.AddCommand(c.registryCmd())
	root.AddCommand(c.applicationsCmd())
	root.AddCommand(c.documentsCmd())
	root.AddCommand(c.draftsCmd())
	root.AddCommand(c.submissionsCmd())
	root.AddCommand(c.loginCmd())
	root.AddCommand(c.registerCmd())
	root.AddCommand(c.logoutCmd())

	return root
}

func printf(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}
