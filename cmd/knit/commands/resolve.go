package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/knit/internal/adapters/emit"
	"go.trai.ch/knit/internal/app"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [manifest]",
		Short: "Resolve every call site of a unit and emit the bindings",
		Long: "Resolve every call site of the unit described by manifest and emit the bindings.\n" +
			"A directory argument is searched upwards for knit.yaml.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions(cmd)
			opts.Out, _ = cmd.Flags().GetString("out")
			opts.Format, _ = cmd.Flags().GetString("format")
			opts.Force, _ = cmd.Flags().GetBool("force")
			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				return c.app.Watch(cmd.Context(), manifestArg(args), opts)
			}
			return c.app.Resolve(cmd.Context(), manifestArg(args), opts)
		},
	}
	cmd.Flags().StringP("out", "o", "", `Output file, "-" for stdout (default "<unit>_knit.<ext>" next to the manifest)`)
	cmd.Flags().String("format", emit.FormatGo, "Output format ("+emit.FormatGo+" or "+emit.FormatJSON+")")
	cmd.Flags().BoolP("force", "f", false, "Emit even when the manifest is unchanged")
	cmd.Flags().BoolP("watch", "w", false, "Resolve again whenever a manifest of the unit changes")
	addRunFlags(cmd)
	return cmd
}

func (c *CLI) newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [manifest]",
		Short: "Resolve every call site of a unit and report diagnostics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Check(cmd.Context(), manifestArg(args), runOptions(cmd))
		},
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("jobs", "j", 0, "Call sites resolved in parallel (default one per CPU)")
	cmd.Flags().String("metrics", "", "Write Prometheus metrics of the run to this textfile")
}

func runOptions(cmd *cobra.Command) app.RunOptions {
	jobs, _ := cmd.Flags().GetInt("jobs")
	metrics, _ := cmd.Flags().GetString("metrics")
	return app.RunOptions{Jobs: jobs, Metrics: metrics}
}
