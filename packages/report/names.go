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

// NameEntry is a defined name and the value it resolves to. an empty
// scope is the workbook scope.
type NameEntry struct {
	Name     string `yaml:"name"`
	Scope    string `yaml:"scope,omitempty"`
	RefersTo string `yaml:"refers_to"`
	Type     string `yaml:"type"`
	Value    string `yaml:"value"`
}

type NameReport struct {
	Workbook string      `yaml:"workbook"`
	Names    []NameEntry `yaml:"names"`
}

func NewNameReport(wb *spreadsheet.Workbook) *NameReport {
	return &NameReport{Workbook: wb.ID().String()}
}

// Add appends a name with its value. v is nil when the name was not
// evaluated.
func (r *NameReport) Add(dn *spreadsheet.DefinedName, v formula.Value) {
	e := NameEntry{Name: dn.Name(), Scope: dn.Scope(), RefersTo: dn.RefersTo(),
		Type: spreadsheet.CellTypeNone.String()}
	if v != nil {
		e.Type = v.CellType().String()
		e.Value = v.String()
	}
	r.Names = append(r.Names, e)
}

func (r *NameReport) Write(w io.Writer, format Format) error {
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

func (r *NameReport) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCOPE\tREFERS TO\tVALUE")
	for _, e := range r.Names {
		scope := e.Scope
		if scope == "" {
			scope = "(workbook)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Name, scope, e.RefersTo, e.Value)
	}
	return tw.Flush()
}

func (r *NameReport) WriteXML(w io.Writer) error {
	bb := bytes.Buffer{}
	x := xml.NewWriter(&bb, xml.WriterConfig{Indent: xml.Indent2Spaces})

	x.XmlStandaloneDecl()
	x.OTag("names")
	x.Attr("workbook", r.Workbook)
	x.Attr("count", len(r.Names))
	for _, e := range r.Names {
		x.OTag("+name").Attr("name", e.Name)
		if e.Scope != "" {
			x.Attr("scope", e.Scope)
		}
		x.Attr("type", e.Type)
		x.OTag("+refersTo").Write(e.RefersTo).CTag()
		if e.Value != "" {
			x.OTag("+value").Write(e.Value).CTag()
		}
		x.CTag()
	}
	x.CTag()

	_, err := w.Write(bb.Bytes())
	return err
}

func (r *NameReport) WriteYAML(w io.Writer) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode names: %w", err)
	}
	_, err = w.Write(out)
	return err
}
