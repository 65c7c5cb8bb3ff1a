package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/report"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"github.com/vogtb/go-spreadsheet/packages/xlsx"
)

func newCalcCommand(a *app) *cobra.Command {
	var (
		output        string
		inPlaceValues bool
	)
	cmd := &cobra.Command{
		Use:   "calc <workbook>",
		Short: "Evaluate every formula and print the results",
		Long: `Evaluate every formula cell of a workbook and print each formula with its
result. With --output the evaluated workbook is saved as .xlsx, keeping the
formulas and their cached results, or replacing the formulas with their
values when --in-place-values is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" && !strings.EqualFold(filepath.Ext(output), ".xlsx") {
				return spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
					fmt.Sprintf("output %q must be an .xlsx file", output))
			}

			wb, fe, err := a.open(args[0])
			if err != nil {
				return err
			}
			if err := fe.EvaluateAll(); err != nil {
				return err
			}
			r := report.Snapshot(wb)

			if inPlaceValues {
				var formulas []*spreadsheet.Cell
				for _, ws := range wb.Sheets() {
					for row := range ws.Rows() {
						for cell := range row.Cells() {
							if cell.Type() == spreadsheet.CellTypeFormula {
								formulas = append(formulas, cell)
							}
						}
					}
				}
				for _, cell := range formulas {
					if _, err := fe.EvaluateInCell(cell); err != nil {
						return fmt.Errorf("evaluating %s: %w", cell, err)
					}
				}
				a.logger.Debug("replaced formulas with values", "cells", len(formulas))
			}

			if err := r.Write(cmd.OutOrStdout(), a.format); err != nil {
				return err
			}
			if output != "" {
				if err := xlsx.Save(wb, output); err != nil {
					return err
				}
				a.logger.Info("saved workbook", "path", output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Save the evaluated workbook to an .xlsx file")
	cmd.Flags().BoolVar(&inPlaceValues, "in-place-values", false, "Replace formulas with their values")
	return cmd
}
