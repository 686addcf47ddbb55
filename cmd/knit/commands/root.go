// Package commands implements the CLI commands for knit.
package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/knit/internal/app"
	"go.trai.ch/knit/internal/build"
)

// CLI represents the command line interface for knit.
type CLI struct {
	app       Application
	logging   LogSettings
	rootCmd   *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Resolve(ctx context.Context, manifest string, opts app.RunOptions) error
	Watch(ctx context.Context, manifest string, opts app.RunOptions) error
	Check(ctx context.Context, manifest string, opts app.RunOptions) error
}

// LogSettings adjusts the application logger from persistent flags.
type LogSettings interface {
	SetVerbose(verbose bool)
	SetJSON(enable bool)
}

// New creates a new CLI instance with the given app. logging may be nil.
func New(a Application, logging LogSettings) *CLI {
	rootCmd := &cobra.Command{
		Use:           "knit",
		Short:         "Compile-time resolution of injectable dependencies",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON records")

	c := &CLI{
		app:       a,
		logging:   logging,
		rootCmd:   rootCmd,
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if c.logging == nil {
			return
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			c.logging.SetVerbose(true)
		}
		if asJSON, _ := cmd.Flags().GetBool("log-json"); asJSON {
			c.logging.SetJSON(true)
		}
	}

	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

func manifestArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
