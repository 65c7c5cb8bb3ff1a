package main

import (
	"github.com/spf13/cobra"
	"github.com/vogtb/go-spreadsheet/packages/report"
)

func newNamesCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "names <workbook>",
		Short: "List defined names and their values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wb, fe, err := a.open(args[0])
			if err != nil {
				return err
			}
			r := report.NewNameReport(wb)
			for _, dn := range wb.Names() {
				v, err := fe.EvaluateName(dn.Name(), dn.SheetIndex())
				if err != nil {
					return err
				}
				r.Add(dn, v)
			}
			return r.Write(cmd.OutOrStdout(), a.format)
		},
	}
}
