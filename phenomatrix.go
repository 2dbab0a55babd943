package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"phenomatrix/pkg"
	"phenomatrix/pkg/diagnostics"
	"phenomatrix/pkg/index"
	pio "phenomatrix/pkg/io"

	"github.com/spf13/cobra"
)

func parseOrder(name string) (index.Order, error) {
	switch name {
	case "lexicographic":
		return index.Lexicographic, nil
	case "first-seen":
		return index.FirstSeen, nil
	default:
		return 0, fmt.Errorf("invalid order policy %s (use lexicographic or first-seen)", name)
	}
}

func BuildCommand() *cobra.Command {

	var annotationFile string
	var labelFiles []string
	var outputDir string

	var cmd = &cobra.Command{
		Use:   "build -i annotationFile -d outputDir",
		Short: "Normalizes the raw annotation table into condition, feature and link tables",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, _, err := pkg.BuildTables(annotationFile, labelFiles, nil)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return err
			}
			return pio.WriteTables(outputDir, t)
		},
	}

	cmd.Flags().StringVarP(&annotationFile, "annotation-file", "i", "", "name of the annotation file")
	cmd.Flags().StringSliceVarP(&labelFiles, "label-file", "l", nil, "feature label lookup files (repeatable)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "directory to write the tables to")

	_ = cmd.MarkFlagRequired("annotation-file")
	_ = cmd.MarkFlagRequired("output-dir")

	return cmd
}

func MatricesCommand() *cobra.Command {

	var dataDir string
	var orderName string

	var cmd = &cobra.Command{
		Use:   "matrices -d dataDir",
		Short: "Assembles the four sparse matrix variants from previously built tables",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := parseOrder(orderName)
			if err != nil {
				return err
			}
			t, err := pio.LoadTables(dataDir)
			if err != nil {
				return err
			}
			im, set, err := pkg.Matrices(t, order)
			if err != nil {
				return err
			}
			return pkg.WriteMatrixArtifacts(dataDir, im, set)
		},
	}

	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory holding the tables; matrices are written next to them")
	cmd.Flags().StringVarP(&orderName, "order", "", "lexicographic", "row/column order policy: lexicographic or first-seen")

	_ = cmd.MarkFlagRequired("data-dir")

	return cmd
}

func InspectCommand() *cobra.Command {

	var dataDir string

	var cmd = &cobra.Command{
		Use:   "inspect -d dataDir",
		Short: "Runs advisory sanity checks over the built tables and exports CSV reports",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := pio.LoadTables(dataDir)
			if err != nil {
				return err
			}
			report := diagnostics.Inspect(t)
			report.Log()
			return report.ExportCSV(filepath.Join(dataDir, "diagnostics"))
		},
	}

	cmd.Flags().StringVarP(&dataDir, "data-dir", "d", "", "directory holding the tables")

	_ = cmd.MarkFlagRequired("data-dir")

	return cmd
}

func RunCommand() *cobra.Command {

	var annotationFile string
	var labelFiles []string
	var outputDir string
	var orderName string

	var cmd = &cobra.Command{
		Use:   "run -i annotationFile -d outputDir",
		Short: "Builds the tables and assembles the matrices in one pass",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := parseOrder(orderName)
			if err != nil {
				return err
			}
			result, err := pkg.Run(pkg.Parameters{
				AnnotationFile: annotationFile,
				LabelFiles:     labelFiles,
				Order:          order,
			})
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return err
			}
			return pkg.WriteArtifacts(outputDir, result)
		},
	}

	cmd.Flags().StringVarP(&annotationFile, "annotation-file", "i", "", "name of the annotation file")
	cmd.Flags().StringSliceVarP(&labelFiles, "label-file", "l", nil, "feature label lookup files (repeatable)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "d", "", "directory to write all artifacts to")
	cmd.Flags().StringVarP(&orderName, "order", "", "lexicographic", "row/column order policy: lexicographic or first-seen")

	_ = cmd.MarkFlagRequired("annotation-file")
	_ = cmd.MarkFlagRequired("output-dir")

	return cmd
}

var logLevel string
var logFormat string

func main() {

	Main := &cobra.Command{Use: "phenomatrix", PersistentPreRun: setupLogging}

	Main.PersistentFlags().StringVarP(&logLevel, "log-level", "", "info", "Logging level: info error or debug")
	Main.PersistentFlags().StringVarP(&logFormat, "log-format", "", "pretty", "Logging format: pretty or json")

	Main.AddCommand(BuildCommand())
	Main.AddCommand(MatricesCommand())
	Main.AddCommand(InspectCommand())
	Main.AddCommand(RunCommand())

	if err := Main.Execute(); err != nil {
		panic(err)
	}
}

func setupLogging(cmd *cobra.Command, args []string) {

	switch logLevel {
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	default:
		panic("Invalid logging level specified")
	}

	switch logFormat {
	case "pretty":
		setupPrettyLogging()
	case "json":
	default:
		panic("Invalid log format specified")

	}

}

func setupPrettyLogging() {
	writer := zerolog.ConsoleWriter{Out: os.Stderr}
	writer.FormatFieldValue = func(i interface{}) string {
		switch v := i.(type) {
		case json.Number:
			val, _ := v.Float64()
			return fmt.Sprintf("%.3f", val)
		default:
			return fmt.Sprintf("%s", i)
		}

	}
	log.Logger = log.Output(writer)

}
