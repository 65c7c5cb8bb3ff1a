package spreadsheet

import (
	"fmt"
	"strconv"
	"strings"
)

// grid limits of the xlsx format.
const (
	MaxRows    = 1 << 20 // 1,048,576
	MaxColumns = 1 << 14 // 16,384
)

// ColumnName converts a zero-based column index to letters (0 -> A, 26 -> AA).
func ColumnName(col uint32) string {
	var buf [8]byte
	i := len(buf)
	n := col + 1
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}

// CellName returns the A1-style name of a zero-based position.
func CellName(row, col uint32) string {
	return ColumnName(col) + strconv.FormatUint(uint64(row)+1, 10)
}

// ParseColumnName converts column letters (with an optional '$') to a
// zero-based index.
func ParseColumnName(letters string) (uint32, error) {
	letters = strings.TrimPrefix(letters, "$")
	if letters == "" {
		return 0, NewApplicationError(InvalidArgument, "empty column name")
	}
	var col uint32
	for _, ch := range letters {
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + uint32(ch-'A') + 1
		case ch >= 'a' && ch <= 'z':
			col = col*26 + uint32(ch-'a') + 1
		default:
			return 0, NewApplicationError(InvalidArgument, fmt.Sprintf("invalid column name: %s", letters))
		}
		if col > MaxColumns {
			return 0, NewApplicationError(OutOfRange, fmt.Sprintf("column %s is beyond the last column", letters))
		}
	}
	return col - 1, nil
}

// ParseRowNumber converts a 1-based row number (with an optional '$') to a
// zero-based index.
func ParseRowNumber(digits string) (uint32, error) {
	digits = strings.TrimPrefix(digits, "$")
	n, err := strconv.ParseUint(digits, 10, 32)
	if err != nil {
		return 0, NewApplicationError(InvalidArgument, fmt.Sprintf("invalid row number: %s", digits))
	}
	if n < 1 {
		return 0, NewApplicationError(InvalidArgument, fmt.Sprintf("row number must be positive: %d", n))
	}
	if n > MaxRows {
		return 0, NewApplicationError(OutOfRange, fmt.Sprintf("row %d is beyond the last row", n))
	}
	return uint32(n - 1), nil
}

// ParseCellName parses a cell name like "B3" or "$B$3" into zero-based row
// and column indices.
func ParseCellName(cell string) (row, col uint32, err error) {
	letters, digits, ok := splitCellName(cell)
	if !ok {
		return 0, 0, NewApplicationError(InvalidArgument, fmt.Sprintf("invalid cell reference: %s", cell))
	}
	if col, err = ParseColumnName(letters); err != nil {
		return 0, 0, err
	}
	if row, err = ParseRowNumber(digits); err != nil {
		return 0, 0, err
	}
	return row, col, nil
}

// IsCellName reports whether s has the shape of a single A1 reference. it
// does not check grid bounds.
func IsCellName(s string) bool {
	_, _, ok := splitCellName(s)
	return ok
}

// splitCellName splits "$AB$12" into "$AB" and "$12".
func splitCellName(cell string) (letters, digits string, ok bool) {
	i := 0
	if i < len(cell) && cell[i] == '$' {
		i++
	}
	start := i
	for i < len(cell) && isLetter(cell[i]) {
		i++
	}
	if i == start {
		return "", "", false
	}
	letters = cell[:i]
	if i < len(cell) && cell[i] == '$' {
		i++
	}
	digitStart := i
	for i < len(cell) && cell[i] >= '0' && cell[i] <= '9' {
		i++
	}
	if i == digitStart || i != len(cell) {
		return "", "", false
	}
	return letters, cell[len(letters):], true
}

func isLetter(ch byte) bool {
	return ch >= 'A' && ch <= 'Z' || ch >= 'a' && ch <= 'z'
}

// SplitSheetReference splits "Sheet1!A1" or "'My Sheet'!A1" into the sheet
// name (unquoted, "" if absent) and the rest.
func SplitSheetReference(ref string) (sheet, rest string, err error) {
	if strings.HasPrefix(ref, "'") {
		// quoted name, '' is an escaped apostrophe
		var b strings.Builder
		i := 1
		for {
			if i >= len(ref) {
				return "", "", NewApplicationError(InvalidArgument, fmt.Sprintf("unclosed sheet name in %s", ref))
			}
			if ref[i] == '\'' {
				if i+1 < len(ref) && ref[i+1] == '\'' {
					b.WriteByte('\'')
					i += 2
					continue
				}
				break
			}
			b.WriteByte(ref[i])
			i++
		}
		if i+1 >= len(ref) || ref[i+1] != '!' {
			return "", "", NewApplicationError(InvalidArgument, fmt.Sprintf("expected ! after sheet name in %s", ref))
		}
		return b.String(), ref[i+2:], nil
	}

	bang := strings.LastIndex(ref, "!")
	if bang < 0 {
		return "", ref, nil
	}
	return ref[:bang], ref[bang+1:], nil
}

// QuoteSheetName quotes a sheet name for use in a reference when it is not
// a plain identifier.
func QuoteSheetName(name string) string {
	_, _, cellErr := ParseCellName(name)
	plain := name != "" && cellErr != nil && (isLetter(name[0]) || name[0] == '_')
	for i := 0; plain && i < len(name); i++ {
		ch := name[i]
		plain = isLetter(ch) || ch >= '0' && ch <= '9' || ch == '_' || ch == '.'
	}
	if plain {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
