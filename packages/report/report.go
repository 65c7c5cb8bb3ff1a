// Package report renders the formula cells of a workbook and their
// results as text, XML or YAML.
package report

import (
	"bytes"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/adnsv/srw/xml"
	"github.com/vogtb/go-spreadsheet/packages/formula"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"gopkg.in/yaml.v2"
)

// Format selects a renderer.
type Format string

const (
	FormatText Format = "text"
	FormatXML  Format = "xml"
	FormatYAML Format = "yaml"
)

// ParseFormat returns the format with the given name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatText, FormatXML, FormatYAML:
		return f, nil
	}
	return "", spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
		fmt.Sprintf("unknown report format %q", name))
}

// Entry is one formula cell and its cached result.
type Entry struct {
	Sheet   string `yaml:"sheet"`
	Ref     string `yaml:"ref"`
	Formula string `yaml:"formula"`
	Type    string `yaml:"type"`
	Value   string `yaml:"value"`
}

type Report struct {
	Workbook string  `yaml:"workbook"`
	Entries  []Entry `yaml:"cells"`
}

// Snapshot collects every formula cell of a workbook in sheet, row and
// column order. values are the cached results, so the workbook is normally
// evaluated first; a formula that was never evaluated has type "none" and
// an empty value.
func Snapshot(wb *spreadsheet.Workbook) *Report {
	r := &Report{Workbook: wb.ID().String()}
	for _, ws := range wb.Sheets() {
		for row := range ws.Rows() {
			for cell := range row.Cells() {
				if cell.Type() != spreadsheet.CellTypeFormula {
					continue
				}
				r.Entries = append(r.Entries, Entry{
					Sheet:   ws.Name(),
					Ref:     cell.Reference(),
					Formula: "=" + cell.CellFormula(),
					Type:    cell.CachedFormulaResultType().String(),
					Value:   cachedValue(cell),
				})
			}
		}
	}
	return r
}

// Add appends an entry for a value computed for a cell. cell may be nil
// for an empty position, and v is nil when the cell has no value.
func (r *Report) Add(sheet, ref string, cell *spreadsheet.Cell, v formula.Value) {
	e := Entry{Sheet: sheet, Ref: ref, Type: spreadsheet.CellTypeBlank.String()}
	if cell != nil && cell.Type() == spreadsheet.CellTypeFormula {
		e.Formula = "=" + cell.CellFormula()
	}
	if v != nil {
		e.Type = v.CellType().String()
		e.Value = v.String()
	}
	r.Entries = append(r.Entries, e)
}

func cachedValue(cell *spreadsheet.Cell) string {
	switch cell.CachedFormulaResultType() {
	case spreadsheet.CellTypeNumeric:
		return spreadsheet.FormatNumber(cell.NumericCellValue())
	case spreadsheet.CellTypeBoolean:
		if cell.BooleanCellValue() {
			return "TRUE"
		}
		return "FALSE"
	case spreadsheet.CellTypeString:
		return cell.StringCellValue()
	case spreadsheet.CellTypeError:
		return cell.ErrorCellValue().String()
	}
	return ""
}

// Write renders the report in the given format.
func (r *Report) Write(w io.Writer, format Format) error {
	switch format {
	case FormatText:
		return r.WriteText(w)
	case FormatXML:
		return r.WriteXML(w)
	case FormatYAML:
		return r.WriteYAML(w)
	}
	return spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
		fmt.Sprintf("unknown report format %q", format))
}

// WriteText writes an aligned table with a header row.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CELL\tFORMULA\tTYPE\tVALUE")
	for _, e := range r.Entries {
		ref := spreadsheet.QuoteSheetName(e.Sheet) + "!" + e.Ref
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ref, e.Formula, e.Type, e.Value)
	}
	return tw.Flush()
}

// WriteXML writes the report as a <report> document with one <cell>
// element per entry.
func (r *Report) WriteXML(w io.Writer) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("report")
	x.Attr("workbook", r.Workbook)
	x.Attr("count", len(r.Entries))
	for _, e := range r.Entries {
		x.OTag("+cell").Attr("sheet", e.Sheet).Attr("ref", e.Ref).Attr("type", e.Type)
		x.OTag("+formula").Write(e.Formula).CTag()
		if e.Value != "" {
			x.OTag("+value").Write(e.Value).CTag()
		}
		x.CTag()
	}
	x.CTag()

	_, err := w.Write(bb.Bytes())
	return err
}

func (r *Report) WriteYAML(w io.Writer) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = w.Write(out)
	return err
}
