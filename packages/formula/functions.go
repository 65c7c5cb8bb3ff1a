package formula

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
	"golang.org/x/exp/maps"
)

// Function is the calling convention shared by built-in and user-defined
// functions. arguments that evaluated to errors arrive as *SpreadsheetError
// values; ranges arrive as Range.
type Function func(args ...Primitive) (Primitive, error)

// UserDefinedFunction is a function registered by the caller.
type UserDefinedFunction = Function

type functionEntry struct {
	name        string
	fn          Function
	volatile    bool
	userDefined bool
}

// FunctionTable is the immutable registry of callable functions. built-ins
// come first, in name order, then user-defined functions. indices are
// stable for the table's lifetime, so tokens can carry them.
type FunctionTable struct {
	entries []functionEntry
	byName  map[string]int
}

// NewFunctionTable builds the registry. user-defined names are matched
// case-insensitively and may not shadow a built-in.
func NewFunctionTable(builtins *BuiltInFunctions, udfs map[string]UserDefinedFunction) (*FunctionTable, error) {
	ft := &FunctionTable{byName: make(map[string]int)}

	registry := builtins.registry()
	names := maps.Keys(registry)
	slices.Sort(names)
	for _, name := range names {
		ft.add(functionEntry{name: name, fn: registry[name], volatile: isVolatileFunction(name)})
	}

	udfNames := maps.Keys(udfs)
	slices.Sort(udfNames)
	for _, name := range udfNames {
		upper := strings.ToUpper(strings.TrimSpace(name))
		if upper == "" {
			return nil, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument, "user-defined function needs a name")
		}
		if udfs[name] == nil {
			return nil, spreadsheet.NewApplicationError(spreadsheet.InvalidArgument,
				fmt.Sprintf("user-defined function %s is nil", upper))
		}
		if _, exists := ft.byName[upper]; exists {
			return nil, spreadsheet.NewApplicationError(spreadsheet.AlreadyExists,
				fmt.Sprintf("function %s is already defined", upper))
		}
		ft.add(functionEntry{name: upper, fn: udfs[name], userDefined: true})
	}
	return ft, nil
}

func (ft *FunctionTable) add(entry functionEntry) {
	ft.byName[entry.name] = len(ft.entries)
	ft.entries = append(ft.entries, entry)
}

// Index returns the index of a function, or -1 if it is unknown.
func (ft *FunctionTable) Index(name string) int {
	if index, exists := ft.byName[strings.ToUpper(name)]; exists {
		return index
	}
	return -1
}

// Name returns the canonical (upper case) name at an index, or "".
func (ft *FunctionTable) Name(index int) string {
	if index < 0 || index >= len(ft.entries) {
		return ""
	}
	return ft.entries[index].name
}

// IsVolatile reports whether the function must be recalculated on every
// evaluation.
func (ft *FunctionTable) IsVolatile(index int) bool {
	return index >= 0 && index < len(ft.entries) && ft.entries[index].volatile
}

// Call invokes the function at an index.
func (ft *FunctionTable) Call(index int, args ...Primitive) (Primitive, error) {
	if index < 0 || index >= len(ft.entries) {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeName, fmt.Sprintf("Unknown function index: %d", index))
	}
	return ft.entries[index].fn(args...)
}

// UserDefinedFunctionIndex returns the index of a user-defined function.
func (ft *FunctionTable) UserDefinedFunctionIndex(name string) (int, bool) {
	index := ft.Index(name)
	if index < 0 || !ft.entries[index].userDefined {
		return -1, false
	}
	return index, true
}

// UserDefinedFunctionName returns the name of the user-defined function at
// an index.
func (ft *FunctionTable) UserDefinedFunctionName(index int) (string, bool) {
	if index < 0 || index >= len(ft.entries) || !ft.entries[index].userDefined {
		return "", false
	}
	return ft.entries[index].name, true
}

// Len returns the number of registered functions
func (ft *FunctionTable) Len() int {
	return len(ft.entries)
}
