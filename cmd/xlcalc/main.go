// Command xlcalc evaluates the formulas of a workbook stored as .xlsx or
// as a YAML fixture.
//
//	xlcalc calc budget.xlsx --output evaluated.xlsx
//	xlcalc eval budget.yaml 'Summary!B1' Summary!B2
//	xlcalc names budget.xlsx --format yaml
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
