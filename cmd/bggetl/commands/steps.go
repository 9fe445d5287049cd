package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"bggetl/internal/config"
)

func newRunCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the whole job: rankings dump, catalog extract, transform and load.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := setup(g, cmd.ErrOrStderr(), "api", "credentials", "paths", "extract", "transform", "storage", "metrics", "log")
			if err != nil {
				return err
			}
			defer j.close()

			sum, err := j.runner.Run(cmd.Context())
			if err != nil {
				j.log.Error("job failed", "error", err)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d ids, %d batches, %d games, %d tables loaded, %d failed\n",
				sum.RunID, sum.IDs, sum.Batches, sum.Stats.Games, len(sum.Load.Loaded), len(sum.Load.Failed))
			return nil
		},
	}
}

func newExtractCmd(g *globalFlags) *cobra.Command {
	var idsFile string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Download the rankings dump and fetch catalog records into the run's xml directory.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := setup(g, cmd.ErrOrStderr(), "api", "credentials", "paths", "extract", "metrics", "log")
			if err != nil {
				return err
			}
			defer j.close()

			var ids []string
			if idsFile != "" {
				ids, err = j.runner.ReadIDs(idsFile)
			} else {
				ids, err = j.runner.Rankings(cmd.Context())
			}
			if err != nil {
				return err
			}
			n, err := j.runner.Extract(cmd.Context(), ids)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d batch files to %s\n", n, j.runner.Layout().XML())
			return nil
		},
	}
	cmd.Flags().StringVar(&idsFile, "ids-file", "", "read game ids from this file (one per line) instead of the rankings dump")
	return cmd
}

func newTransformCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "transform",
		Short: "Transform the run's xml files into csv tables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := setup(g, cmd.ErrOrStderr(), "paths", "transform", "metrics", "log")
			if err != nil {
				return err
			}
			defer j.close()

			set, stats, err := j.runner.Transform(cmd.Context())
			if err != nil {
				return err
			}
			files, err := j.runner.Write(set)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d games, %d parse errors, %d tables written to %s\n",
				stats.Games, stats.ParseErrors, len(files), j.runner.Layout().CSV())
			return nil
		},
	}
}

func newLoadCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "load",
		Short: "Replace database tables with the run's csv files.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			j, err := setup(g, cmd.ErrOrStderr(), "paths", "storage", "metrics", "log")
			if err != nil {
				return err
			}
			defer j.close()

			report, err := j.runner.Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d tables loaded (%d rows), %d failed\n",
				len(report.Loaded), report.Rows(), len(report.Failed))
			return nil
		},
	}
}

func newValidateCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the effective configuration and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.config)
			if err != nil {
				return err
			}
			issues := config.ValidateConfig(cfg)
			printIssues(cmd.ErrOrStderr(), issues)
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}
}
