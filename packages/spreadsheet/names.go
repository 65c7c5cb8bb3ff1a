package spreadsheet

import (
	"fmt"
	"strings"
)

// DefinedName is a name bound to a formula, usually a reference such as
// Sheet1!$A$1:$B$4. a name is either workbook-scoped or scoped to one sheet.
// sheet scope is tied to the sheet's identity, not its position.
type DefinedName struct {
	name     string
	refersTo string
	scopeID  uint32 // worksheet ID, 0 for workbook scope
	sheets   *WorksheetTable
}

// Name returns the name as it was defined.
func (dn *DefinedName) Name() string {
	return dn.name
}

// RefersTo returns the formula text without the leading '='.
func (dn *DefinedName) RefersTo() string {
	return dn.refersTo
}

// SheetIndex returns the index of the scoping sheet, or -1 for a
// workbook-scoped name.
func (dn *DefinedName) SheetIndex() int {
	if dn.scopeID == 0 {
		return -1
	}
	return dn.sheets.Index(dn.scopeID)
}

// Scope returns the scoping sheet's name, or "" for workbook scope.
func (dn *DefinedName) Scope() string {
	if dn.scopeID == 0 {
		return ""
	}
	name, _ := dn.sheets.Name(dn.scopeID)
	return name
}

type nameKey struct {
	folded  string
	scopeID uint32
}

// DefinedNameTable manages defined names with ID tracking. lookups are
// case-insensitive; the same text may be defined once per scope.
type DefinedNameTable struct {
	nameToID map[nameKey]uint32
	names    map[uint32]*DefinedName // ID -> definition, IDs follow definition order
	sheets   *WorksheetTable
	nextID   uint32
}

// NewDefinedNameTable creates a new defined name table
func NewDefinedNameTable(sheets *WorksheetTable) *DefinedNameTable {
	return &DefinedNameTable{
		nameToID: make(map[nameKey]uint32),
		names:    make(map[uint32]*DefinedName),
		sheets:   sheets,
		nextID:   1, // start at 1, reserve 0 for no name
	}
}

// validateDefinedName applies the naming rules of the xlsx format: a
// letter, underscore or backslash first, then letters, digits, underscores
// and periods, and nothing that reads as a cell reference or boolean.
func validateDefinedName(name string) error {
	if name == "" {
		return NewApplicationError(InvalidArgument, "defined name must not be empty")
	}
	first := name[0]
	if !isLetter(first) && first != '_' && first != '\\' {
		return NewApplicationError(InvalidArgument,
			fmt.Sprintf("defined name %q must start with a letter, underscore or backslash", name))
	}
	for i := 1; i < len(name); i++ {
		ch := name[i]
		if !isLetter(ch) && !(ch >= '0' && ch <= '9') && ch != '_' && ch != '.' && ch != '\\' {
			return NewApplicationError(InvalidArgument,
				fmt.Sprintf("defined name %q contains an invalid character", name))
		}
	}
	if _, _, err := ParseCellName(name); err == nil {
		return NewApplicationError(InvalidArgument,
			fmt.Sprintf("defined name %q conflicts with a cell reference", name))
	}
	switch strings.ToUpper(name) {
	case "TRUE", "FALSE", "R", "C":
		return NewApplicationError(InvalidArgument, fmt.Sprintf("defined name %q is reserved", name))
	}
	return nil
}

// Define defines or redefines a name in a scope. returns the definition.
func (dt *DefinedNameTable) Define(name, refersTo string, scopeID uint32) (*DefinedName, error) {
	if err := validateDefinedName(name); err != nil {
		return nil, err
	}
	refersTo = strings.TrimPrefix(strings.TrimSpace(refersTo), "=")
	if refersTo == "" {
		return nil, NewApplicationError(InvalidArgument, fmt.Sprintf("defined name %q has no formula", name))
	}

	key := nameKey{folded: foldName(name), scopeID: scopeID}
	if id, exists := dt.nameToID[key]; exists {
		dn := dt.names[id]
		dn.name = name
		dn.refersTo = refersTo
		return dn, nil
	}

	dn := &DefinedName{name: name, refersTo: refersTo, scopeID: scopeID, sheets: dt.sheets}
	id := dt.nextID
	dt.nextID++
	dt.nameToID[key] = id
	dt.names[id] = dn
	return dn, nil
}

// Lookup finds a name in exactly one scope, without falling back.
func (dt *DefinedNameTable) Lookup(name string, scopeID uint32) (*DefinedName, bool) {
	id, exists := dt.nameToID[nameKey{folded: foldName(name), scopeID: scopeID}]
	if !exists {
		return nil, false
	}
	return dt.names[id], true
}

// Remove deletes a name from a scope. returns true if it existed.
func (dt *DefinedNameTable) Remove(name string, scopeID uint32) bool {
	key := nameKey{folded: foldName(name), scopeID: scopeID}
	id, exists := dt.nameToID[key]
	if !exists {
		return false
	}
	delete(dt.nameToID, key)
	delete(dt.names, id)
	return true
}

// RemoveScope deletes every name scoped to a worksheet.
func (dt *DefinedNameTable) RemoveScope(scopeID uint32) {
	for key, id := range dt.nameToID {
		if key.scopeID == scopeID {
			delete(dt.nameToID, key)
			delete(dt.names, id)
		}
	}
}

// All returns every definition in definition order.
func (dt *DefinedNameTable) All() []*DefinedName {
	result := make([]*DefinedName, 0, len(dt.names))
	_ = enumerate(dt.names, func(_ uint32, dn *DefinedName) error {
		result = append(result, dn)
		return nil
	})
	return result
}

// Count returns the number of definitions across all scopes
func (dt *DefinedNameTable) Count() int {
	return len(dt.names)
}
