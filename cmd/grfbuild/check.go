package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"grfbuild/internal/project"
	"grfbuild/internal/reconcile"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags]",
	Short: "Compare fragment properties with the tracking spreadsheet",
	Long: `Compare the cost and physics properties of every train fragment with the
values in the tracking spreadsheet. --check lists the differences; --overwrite
writes the spreadsheet values into the fragments after backing them up.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().Bool("check", false, "list mismatching values (default when --overwrite is not set)")
	checkCmd.Flags().Bool("overwrite", false, "rewrite mismatching values in place")
	checkCmd.Flags().String("csv", "", "spreadsheet export (default from manifest)")
	checkCmd.Flags().String("backup-dir", "", "where originals of rewritten files are kept (default from manifest)")
	checkCmd.Flags().String("src", "", "source directory (default from manifest, src)")
	checkCmd.Flags().Int("jobs", 0, "parallel parsers (0 = GOMAXPROCS)")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	stopProfiling, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	check, err := cmd.Flags().GetBool("check")
	if err != nil {
		return err
	}
	overwrite, err := cmd.Flags().GetBool("overwrite")
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return err
	}
	if !check && !overwrite {
		check = true
	}

	manifest, _, err := project.Load(".")
	if err != nil {
		return err
	}
	rc := manifest.Config.Reconcile
	csvPath, err := pathFlag(cmd, "csv", manifest.Resolve(rc.CSV))
	if err != nil {
		return err
	}
	backupDir, err := pathFlag(cmd, "backup-dir", manifest.Resolve(rc.BackupDir))
	if err != nil {
		return err
	}
	srcDir, err := pathFlag(cmd, "src", manifest.Resolve(manifest.Config.Paths.Src))
	if err != nil {
		return err
	}

	fields, err := reconcileFields(rc.Fields)
	if err != nil {
		return err
	}
	values, err := reconcile.LoadCSV(csvPath, rc.IDColumn, fields)
	if err != nil {
		return err
	}
	logger.Debug("Loaded spreadsheet", "path", csvPath, "units", len(values))

	report, err := reconcile.Run(cmd.Context(), reconcile.Options{
		SrcDir:    srcDir,
		Extension: manifest.Config.Fragments.Extension,
		Values:    values,
		Fields:    fields,
		Cap:       rc.Cap,
		Overwrite: overwrite,
		BackupDir: backupDir,
		Jobs:      jobs,
		Logger:    logger,
	})
	if report != nil {
		if perr := reconcile.Print(cmd.OutOrStdout(), report, reconcile.PrintOptions{Check: check}); perr != nil {
			return perr
		}
	}
	if err != nil {
		return err
	}
	logger.Info("Checked fragments", "scanned", report.Scanned, "items", len(report.Files), "mismatches", report.Mismatches())
	return nil
}

// pathFlag returns the flag's absolute value when set, def otherwise.
func pathFlag(cmd *cobra.Command, name, def string) (string, error) {
	if !cmd.Flags().Changed(name) {
		return def, nil
	}
	value, err := cmd.Flags().GetString(name)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("--%s must not be empty", name)
	}
	return filepath.Abs(value)
}

func reconcileFields(mappings []project.FieldMapping) ([]reconcile.Field, error) {
	fields := make([]reconcile.Field, len(mappings))
	for i, m := range mappings {
		agg, err := reconcile.ParseAggregate(m.Aggregate)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", m.Column, err)
		}
		fields[i] = reconcile.Field{Column: m.Column, Property: m.Property, Agg: agg}
	}
	return fields, nil
}
