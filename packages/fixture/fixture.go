// Package fixture describes workbooks in YAML, for tests and for the
// command line.
//
//	sheets:
//	  - name: Sheet1
//	    cells:
//	      A1: 2
//	      A2: 3
//	      B1: =A1*Rate
//	      C1: "#N/A"
//	names:
//	  - name: Rate
//	    refers_to: Sheet1!$A$2
//
// a string starting with '=' is a formula and one starting with '#' is an
// error literal. a null value leaves a blank cell.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"gopkg.in/yaml.v2"
)

// Document is a decoded workbook description.
type Document struct {
	Sheets []Sheet `yaml:"sheets" validate:"required,min=1,unique=Name,dive"`
	Names  []Name  `yaml:"names" validate:"dive"`
}

type Sheet struct {
	Name  string         `yaml:"name" validate:"required,max=31"`
	Cells map[string]any `yaml:"cells"`
}

// Name is a defined name. an empty scope is the workbook scope; otherwise
// it names the sheet the definition belongs to.
type Name struct {
	Name     string `yaml:"name" validate:"required"`
	RefersTo string `yaml:"refers_to" validate:"required"`
	Scope    string `yaml:"scope"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads and validates a document from a file.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	doc, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return doc, nil
}

// Decode reads and validates a document. unknown keys are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument, "empty document")
		}
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document structure. cell values are checked by Build.
func (d *Document) Validate() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("struct validation error: %w", err)
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
	}
	return spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
		"invalid document: "+strings.Join(problems, "; "))
}

// Build creates the workbook the document describes.
func (d *Document) Build() (*spreadsheet.Workbook, error) {
	b := spreadsheet.NewBuilder()
	seen := make(map[string]bool, len(d.Sheets))
	for _, sheet := range d.Sheets {
		// sheet names are case-insensitive; the builder would reuse the first
		key := strings.ToUpper(sheet.Name)
		if seen[key] {
			return nil, spreadsheet.NewApplicationError(spreadsheet.AlreadyExists,
				fmt.Sprintf("sheet %q is defined twice", sheet.Name))
		}
		seen[key] = true
		values := make(map[string]any, len(sheet.Cells))
		for ref, raw := range sheet.Cells {
			value, err := cellValue(raw)
			if err != nil {
				return nil, fmt.Errorf("%s!%s: %w", sheet.Name, ref, err)
			}
			values[ref] = value
		}
		b.Sheet(sheet.Name).SetBatch(values)
	}
	wb, err := b.Build()
	if err != nil {
		return nil, err
	}

	for _, name := range d.Names {
		sheetIndex := -1
		if name.Scope != "" {
			if sheetIndex = wb.SheetIndex(name.Scope); sheetIndex < 0 {
				return nil, spreadsheet.NewApplicationError(spreadsheet.NotFound,
					fmt.Sprintf("name %q is scoped to unknown sheet %q", name.Name, name.Scope))
			}
		}
		if _, err := wb.DefineName(name.Name, name.RefersTo, sheetIndex); err != nil {
			return nil, err
		}
	}
	return wb, nil
}

// cellValue converts a decoded YAML scalar into a value the builder takes.
func cellValue(raw any) (any, error) {
	switch v := raw.(type) {
	case nil, bool, int, float64:
		return v, nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		if !strings.HasPrefix(v, "#") {
			return v, nil
		}
		code, ok := spreadsheet.ParseErrorCode(v)
		if !ok {
			return nil, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
				fmt.Sprintf("unknown error literal %q", v))
		}
		return code, nil
	default:
		return nil, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
			fmt.Sprintf("cell value must be a scalar, got %T", raw))
	}
}
