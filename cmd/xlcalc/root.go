package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/evaluator"
	"github.com/vogtb/go-spreadsheet/packages/fixture"
	"github.com/vogtb/go-spreadsheet/packages/report"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"github.com/vogtb/go-spreadsheet/packages/xlsx"
	"gopkg.in/yaml.v2"
)

// config is the content of the --config file. flags given on the command
// line take precedence.
type config struct {
	IgnoreMissingWorkbooks bool   `yaml:"ignore_missing_workbooks"`
	Debug                  bool   `yaml:"debug"`
	Format                 string `yaml:"format" validate:"omitempty,oneof=text xml yaml"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func loadConfig(path string) (config, error) {
	var cfg config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return cfg, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
				fmt.Sprintf("config %s: %s failed on '%s'", path, verrs[0].Field(), verrs[0].Tag()))
		}
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// app holds the settings shared by every subcommand, resolved before the
// subcommand runs.
type app struct {
	configPath string
	cfg        config
	format     report.Format
	logger     *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "xlcalc",
		Short: "Evaluate spreadsheet formulas",
		Long: `Evaluate the formulas of a workbook.

Workbooks are read from .xlsx files or from YAML fixtures (.yaml, .yml).

Commands:
  calc   Evaluate every formula and print the results.
  eval   Evaluate individual cells.
  names  List defined names and their values.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.BoolVar(&a.cfg.IgnoreMissingWorkbooks, "ignore-missing-workbooks", false,
		"Use cached results for references to unavailable workbooks")
	flags.BoolVar(&a.cfg.Debug, "debug", false, "Log every cell visited by the evaluation")
	flags.StringVar(&a.cfg.Format, "format", string(report.FormatText), "Output format: text, xml or yaml")

	cmd.AddCommand(newCalcCommand(a))
	cmd.AddCommand(newEvalCommand(a))
	cmd.AddCommand(newNamesCommand(a))
	return cmd
}

// setup merges the config file under the flags and creates the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if a.configPath != "" {
		fileCfg, err := loadConfig(a.configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if !flags.Changed("ignore-missing-workbooks") {
			a.cfg.IgnoreMissingWorkbooks = fileCfg.IgnoreMissingWorkbooks
		}
		if !flags.Changed("debug") {
			a.cfg.Debug = fileCfg.Debug
		}
		if !flags.Changed("format") && fileCfg.Format != "" {
			a.cfg.Format = fileCfg.Format
		}
	}

	format, err := report.ParseFormat(a.cfg.Format)
	if err != nil {
		return err
	}
	a.format = format

	level := slog.LevelInfo
	if a.cfg.Debug {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// open loads a workbook and creates its evaluator.
func (a *app) open(path string) (*spreadsheet.Workbook, *evaluator.FormulaEvaluator, error) {
	wb, err := loadWorkbook(path)
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("loaded workbook", "path", path, "workbook", wb.ID(),
		"sheets", wb.NumberOfSheets(), "formulas", wb.FormulaCellCount())
	fe, err := a.newEvaluator(wb)
	if err != nil {
		return nil, nil, err
	}
	return wb, fe, nil
}

func (a *app) newEvaluator(wb *spreadsheet.Workbook) (*evaluator.FormulaEvaluator, error) {
	return evaluator.New(wb,
		evaluator.WithLogger(a.logger),
		evaluator.WithIgnoreMissingWorkbooks(a.cfg.IgnoreMissingWorkbooks),
		evaluator.WithDebugEvaluationOutput(a.cfg.Debug))
}

func loadWorkbook(path string) (*spreadsheet.Workbook, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return xlsx.Open(path)
	case ".yaml", ".yml":
		doc, err := fixture.Load(path)
		if err != nil {
			return nil, err
		}
		return doc.Build()
	default:
		return nil, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
			fmt.Sprintf("unsupported workbook type %q", ext))
	}
}
