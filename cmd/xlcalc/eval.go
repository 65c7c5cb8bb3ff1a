package main

import (
	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/report"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

func newEvalCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <workbook> <cell>...",
		Short: "Evaluate individual cells",
		Long: `Evaluate the given cells and print their values. Cells are A1 references
with an optional sheet name, such as B3 or 'Sheet 2'!B3; a reference without
a sheet name refers to the first sheet.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, fe, err := a.open(args[0])
			if err != nil {
				return err
			}

			r := &report.Report{Workbook: wb.ID().String()}
			for _, ref := range args[1:] {
				cell, err := wb.Cell(ref)
				if err != nil {
					return err
				}
				// the reference resolved, so neither of these fails
				name, local, _ := spreadsheet.SplitSheetReference(ref)
				row, col, _ := spreadsheet.ParseCellName(local)
				ws := wb.SheetAt(0)
				if name != "" {
					ws = wb.Sheet(name)
				}
				v, err := fe.Evaluate(cell)
				if err != nil {
					return err
				}
				r.Add(ws.Name(), spreadsheet.CellName(row, col), cell, v)
			}
			return r.Write(cmd.OutOrStdout(), a.format)
		},
	}
}
