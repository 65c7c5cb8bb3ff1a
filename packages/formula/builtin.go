package formula

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vogtb/go-spreadsheet/packages/spreadsheet"
)

// Clock interface provides time functionality for testing
type Clock interface {
	Now() time.Time
}

// WallClock is the default implementation using system time
type WallClock struct{}

func (w *WallClock) Now() time.Time {
	return time.Now()
}

// RandomGenerator interface provides random number generation for testing
type RandomGenerator interface {
	Float64() float64
}

// DefaultRandomGenerator uses the standard library's rand package
type DefaultRandomGenerator struct{}

func (d *DefaultRandomGenerator) Float64() float64 {
	return rand.Float64()
}

// BuiltInFunctions contains all spreadsheet built-in functions
type BuiltInFunctions struct {
	clock Clock
	rng   RandomGenerator
}

// NewBuiltInFunctions creates the built-ins over a clock and random source.
// nil arguments select the defaults.
func NewBuiltInFunctions(clock Clock, rng RandomGenerator) *BuiltInFunctions {
	if clock == nil {
		clock = &WallClock{}
	}
	if rng == nil {
		rng = &DefaultRandomGenerator{}
	}
	return &BuiltInFunctions{clock: clock, rng: rng}
}

// NewDefaultBuiltInFunctions creates a BuiltInFunctions with default
// implementations
func NewDefaultBuiltInFunctions() *BuiltInFunctions {
	return NewBuiltInFunctions(nil, nil)
}

// registry maps every built-in name to its implementation.
func (bf *BuiltInFunctions) registry() map[string]Function {
	return map[string]Function{
		"SUM":         bf.SUM,
		"AVERAGE":     bf.AVERAGE,
		"AVERAGEA":    bf.AVERAGEA,
		"COUNT":       bf.COUNT,
		"COUNTA":      bf.COUNTA,
		"MAX":         bf.MAX,
		"MIN":         bf.MIN,
		"MEDIAN":      bf.MEDIAN,
		"MODE":        bf.MODE,
		"IF":          bf.IF,
		"IFERROR":     bf.IFERROR,
		"AND":         bf.AND,
		"OR":          bf.OR,
		"NOT":         bf.NOT,
		"ISBLANK":     bf.ISBLANK,
		"ISNUMBER":    bf.ISNUMBER,
		"ISTEXT":      bf.ISTEXT,
		"ISERROR":     bf.ISERROR,
		"CONCATENATE": bf.CONCATENATE,
		"CONCAT":      bf.CONCAT,
		"LEN":         bf.LEN,
		"LEFT":        bf.LEFT,
		"RIGHT":       bf.RIGHT,
		"MID":         bf.MID,
		"UPPER":       bf.UPPER,
		"LOWER":       bf.LOWER,
		"TRIM":        bf.TRIM,
		"ABS":         bf.ABS,
		"ROUND":       bf.ROUND,
		"ROUNDUP":     bf.ROUNDUP,
		"ROUNDDOWN":   bf.ROUNDDOWN,
		"INT":         bf.INT,
		"FLOOR":       bf.FLOOR,
		"CEILING":     bf.CEILING,
		"SQRT":        bf.SQRT,
		"POWER":       bf.POWER,
		"MOD":         bf.MOD,
		"PI":          bf.PI,
		"NOW":         bf.NOW,
		"TODAY":       bf.TODAY,
		"RAND":        bf.RAND,
	}
}

// Call invokes a built-in function by name with the given arguments
func (bf *BuiltInFunctions) Call(name string, args ...Primitive) (Primitive, error) {
	fn, exists := bf.registry()[strings.ToUpper(name)]
	if !exists {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeName, fmt.Sprintf("Unknown function: %s", name))
	}
	return fn(args...)
}

// eachNumber calls fn for every number in the arguments, reading through
// ranges. errors propagate; text and empty cells inside ranges are skipped.
func eachNumber(args []Primitive, fn func(float64)) error {
	for _, arg := range args {
		if err := checkForError(arg); err != nil {
			return err
		}

		if r, ok := arg.(Range); ok {
			for value := range r.IterateValues() {
				if err := checkForError(value); err != nil {
					return err
				}
				if num, ok := value.(float64); ok && !math.IsNaN(num) {
					fn(num)
				}
			}
			continue
		}
		if arg == nil {
			continue // an empty cell passed by reference
		}

		num, ok := toNumber(arg)
		if !ok {
			return NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("%q is not a number", toString(arg)))
		}
		if !math.IsNaN(num) {
			fn(num)
		}
	}
	return nil
}

// requireArgs checks an argument count and that no argument is an error.
func requireArgs(name string, args []Primitive, minArgs, maxArgs int) error {
	if len(args) < minArgs || len(args) > maxArgs {
		switch {
		case minArgs == maxArgs && minArgs == 0:
			return NewSpreadsheetError(spreadsheet.ErrorCodeNA, fmt.Sprintf("%s takes no arguments", name))
		case minArgs == maxArgs:
			return NewSpreadsheetError(spreadsheet.ErrorCodeNA, fmt.Sprintf("%s requires exactly %d argument(s)", name, minArgs))
		default:
			return NewSpreadsheetError(spreadsheet.ErrorCodeNA, fmt.Sprintf("%s requires %d to %d arguments", name, minArgs, maxArgs))
		}
	}
	for _, arg := range args {
		if err := checkForError(arg); err != nil {
			return err
		}
	}
	return nil
}

// numberArg converts one scalar argument to a number.
func numberArg(name string, arg Primitive) (float64, error) {
	if r, ok := arg.(Range); ok {
		single, isSingle := singleValue(r)
		if !isSingle {
			return 0, NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("%s requires a single value", name))
		}
		if err := checkForError(single); err != nil {
			return 0, err
		}
		arg = single
	}
	num, ok := toNumber(arg)
	if !ok {
		return 0, NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("%s requires a numeric argument", name))
	}
	return num, nil
}

func (bf *BuiltInFunctions) SUM(args ...Primitive) (Primitive, error) {
	sum := 0.0
	if err := eachNumber(args, func(num float64) { sum += num }); err != nil {
		return nil, err
	}
	rounded, _ := strconv.ParseFloat(fmt.Sprintf("%.15f", sum), 64)
	return rounded, nil
}

func (bf *BuiltInFunctions) AVERAGE(args ...Primitive) (Primitive, error) {
	sum := 0.0
	count := 0
	if err := eachNumber(args, func(num float64) {
		sum += num
		count++
	}); err != nil {
		return nil, err
	}

	if count == 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeDiv0, "Division by zero")
	}

	return sum / float64(count), nil
}

func (bf *BuiltInFunctions) AVERAGEA(args ...Primitive) (Primitive, error) {
	sum := 0.0
	count := 0

	// helper function to process a single value
	processValue := func(value Primitive) error {
		// nil values (empty cells) are ignored - only from Range iteration
		if value == nil {
			return nil
		}

		// errors propagate
		if err := checkForError(value); err != nil {
			return err
		}
		// AVERAGEA includes all non-empty values in the count but only
		// numeric values contribute to the sum
		switch v := value.(type) {
		case float64:
			sum += v
			count++
		case bool:
			// TRUE = 1, FALSE = 0
			if v {
				sum += 1
			}
			count++
		case string:
			// text values count as 0 (don't affect sum) but do increase count
			count++
		}
		return nil
	}
	for _, arg := range args {
		if r, ok := arg.(Range); ok {
			for value := range r.IterateValues() {
				if err := processValue(value); err != nil {
					return nil, err
				}
			}
		} else if err := processValue(arg); err != nil {
			return nil, err
		}
	}

	if count == 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeDiv0, "AVERAGEA has no values")
	}

	return sum / float64(count), nil
}

func (bf *BuiltInFunctions) COUNT(args ...Primitive) (Primitive, error) {
	count := 0
	for _, arg := range args {
		if r, ok := arg.(Range); ok {
			for value := range r.IterateValues() {
				// only numbers count; text, booleans, errors and empty cells don't
				if _, isNum := value.(float64); isNum {
					count++
				}
			}
			continue
		}
		switch arg.(type) {
		case float64:
			count++
		case string:
			// direct text that reads as a number is counted
			if _, ok := toNumber(arg); ok {
				count++
			}
		}
	}
	return float64(count), nil
}

func (bf *BuiltInFunctions) COUNTA(args ...Primitive) (Primitive, error) {
	count := 0

	// COUNTA counts all non-empty values regardless of type. this includes:
	// numbers, text, booleans, and errors (errors are counted, not propagated).
	for _, arg := range args {
		if r, ok := arg.(Range); ok {
			for value := range r.IterateValues() {
				if value != nil {
					count++
				}
			}
		} else {
			count++
		}
	}

	return float64(count), nil
}

func (bf *BuiltInFunctions) MAX(args ...Primitive) (Primitive, error) {
	max := math.Inf(-1)
	hasValues := false
	if err := eachNumber(args, func(num float64) {
		if num > max {
			max = num
		}
		hasValues = true
	}); err != nil {
		return nil, err
	}

	if hasValues {
		return max, nil
	}
	return 0.0, nil
}

func (bf *BuiltInFunctions) MIN(args ...Primitive) (Primitive, error) {
	min := math.Inf(1)
	hasValues := false
	if err := eachNumber(args, func(num float64) {
		if num < min {
			min = num
		}
		hasValues = true
	}); err != nil {
		return nil, err
	}

	if hasValues {
		return min, nil
	}
	return 0.0, nil
}

func (bf *BuiltInFunctions) MEDIAN(args ...Primitive) (Primitive, error) {
	var values []float64
	if err := eachNumber(args, func(num float64) { values = append(values, num) }); err != nil {
		return nil, err
	}

	if len(values) == 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNum, "MEDIAN has no numeric values")
	}

	slices.Sort(values)
	mid := len(values) / 2
	if len(values)%2 == 0 {
		// even count: average of two middle values
		return (values[mid-1] + values[mid]) / 2, nil
	}
	return values[mid], nil
}

func (bf *BuiltInFunctions) MODE(args ...Primitive) (Primitive, error) {
	frequencyMap := make(map[float64]int)
	if err := eachNumber(args, func(num float64) { frequencyMap[num]++ }); err != nil {
		return nil, err
	}

	if len(frequencyMap) == 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNum, "MODE has no numeric values")
	}

	// find the maximum frequency
	maxFreq := 0
	for _, freq := range frequencyMap {
		if freq > maxFreq {
			maxFreq = freq
		}
	}
	if maxFreq == 1 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNA, "MODE: no value appears more than once")
	}

	// the smallest value wins ties
	var modes []float64
	for value, freq := range frequencyMap {
		if freq == maxFreq {
			modes = append(modes, value)
		}
	}
	return slices.Min(modes), nil
}

func (bf *BuiltInFunctions) IF(args ...Primitive) (Primitive, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNA, "IF requires 2 or 3 arguments")
	}

	// check for errors in condition before evaluating
	if err := checkForError(args[0]); err != nil {
		return nil, err
	}

	if isTruthy(args[0]) {
		return args[1], nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return false, nil
}

func (bf *BuiltInFunctions) IFERROR(args ...Primitive) (Primitive, error) {
	if len(args) != 2 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNA, "IFERROR requires exactly 2 arguments")
	}
	if checkForError(args[0]) != nil {
		return args[1], nil
	}
	return args[0], nil
}

func (bf *BuiltInFunctions) AND(args ...Primitive) (Primitive, error) {
	if err := requireArgs("AND", args, 1, math.MaxInt); err != nil {
		return nil, err
	}
	for _, arg := range args {
		if !isTruthy(arg) {
			return false, nil
		}
	}
	return true, nil
}

func (bf *BuiltInFunctions) OR(args ...Primitive) (Primitive, error) {
	if err := requireArgs("OR", args, 1, math.MaxInt); err != nil {
		return nil, err
	}
	for _, arg := range args {
		if isTruthy(arg) {
			return true, nil
		}
	}
	return false, nil
}

func (bf *BuiltInFunctions) NOT(args ...Primitive) (Primitive, error) {
	if err := requireArgs("NOT", args, 1, 1); err != nil {
		return nil, err
	}
	return !isTruthy(args[0]), nil
}

func (bf *BuiltInFunctions) ISBLANK(args ...Primitive) (Primitive, error) {
	if len(args) != 1 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNA, "ISBLANK requires exactly 1 argument")
	}
	return args[0] == nil, nil
}

func (bf *BuiltInFunctions) ISNUMBER(args ...Primitive) (Primitive, error) {
	if len(args) != 1 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNA, "ISNUMBER requires exactly 1 argument")
	}
	_, isNum := args[0].(float64)
	return isNum, nil
}

func (bf *BuiltInFunctions) ISTEXT(args ...Primitive) (Primitive, error) {
	if len(args) != 1 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNA, "ISTEXT requires exactly 1 argument")
	}
	_, isText := args[0].(string)
	return isText, nil
}

func (bf *BuiltInFunctions) ISERROR(args ...Primitive) (Primitive, error) {
	if len(args) != 1 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNA, "ISERROR requires exactly 1 argument")
	}
	return checkForError(args[0]) != nil, nil
}

func (bf *BuiltInFunctions) CONCATENATE(args ...Primitive) (Primitive, error) {
	if err := requireArgs("CONCATENATE", args, 0, math.MaxInt); err != nil {
		return nil, err
	}
	var result strings.Builder
	for _, arg := range args {
		value := scalar(arg)
		if err := checkForError(value); err != nil {
			return nil, err
		}
		result.WriteString(toString(value))
	}
	return result.String(), nil
}

// CONCAT is CONCATENATE that also reads through ranges.
func (bf *BuiltInFunctions) CONCAT(args ...Primitive) (Primitive, error) {
	var result strings.Builder
	for _, arg := range args {
		if err := checkForError(arg); err != nil {
			return nil, err
		}
		if r, ok := arg.(Range); ok {
			for value := range r.IterateValues() {
				if err := checkForError(value); err != nil {
					return nil, err
				}
				result.WriteString(toString(value))
			}
			continue
		}
		result.WriteString(toString(arg))
	}
	return result.String(), nil
}

func (bf *BuiltInFunctions) LEN(args ...Primitive) (Primitive, error) {
	if err := requireArgs("LEN", args, 1, 1); err != nil {
		return nil, err
	}
	return float64(utf8.RuneCountInString(toString(args[0]))), nil
}

// textAndCount reads the (text, [count]) arguments of LEFT and RIGHT.
func textAndCount(name string, args []Primitive) ([]rune, int, error) {
	if err := requireArgs(name, args, 1, 2); err != nil {
		return nil, 0, err
	}
	count := 1.0
	if len(args) == 2 {
		var err error
		if count, err = numberArg(name, args[1]); err != nil {
			return nil, 0, err
		}
	}
	if count < 0 {
		return nil, 0, NewSpreadsheetError(spreadsheet.ErrorCodeValue, fmt.Sprintf("%s requires a non-negative count", name))
	}
	runes := []rune(toString(args[0]))
	return runes, min(int(count), len(runes)), nil
}

func (bf *BuiltInFunctions) LEFT(args ...Primitive) (Primitive, error) {
	runes, n, err := textAndCount("LEFT", args)
	if err != nil {
		return nil, err
	}
	return string(runes[:n]), nil
}

func (bf *BuiltInFunctions) RIGHT(args ...Primitive) (Primitive, error) {
	runes, n, err := textAndCount("RIGHT", args)
	if err != nil {
		return nil, err
	}
	return string(runes[len(runes)-n:]), nil
}

func (bf *BuiltInFunctions) MID(args ...Primitive) (Primitive, error) {
	if err := requireArgs("MID", args, 3, 3); err != nil {
		return nil, err
	}
	start, err := numberArg("MID", args[1])
	if err != nil {
		return nil, err
	}
	count, err := numberArg("MID", args[2])
	if err != nil {
		return nil, err
	}
	if start < 1 || count < 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeValue, "MID requires a start of at least 1 and a non-negative count")
	}
	runes := []rune(toString(args[0]))
	from := int(start) - 1
	if from >= len(runes) {
		return "", nil
	}
	return string(runes[from:min(from+int(count), len(runes))]), nil
}

func (bf *BuiltInFunctions) UPPER(args ...Primitive) (Primitive, error) {
	if err := requireArgs("UPPER", args, 1, 1); err != nil {
		return nil, err
	}
	return strings.ToUpper(toString(args[0])), nil
}

func (bf *BuiltInFunctions) LOWER(args ...Primitive) (Primitive, error) {
	if err := requireArgs("LOWER", args, 1, 1); err != nil {
		return nil, err
	}
	return strings.ToLower(toString(args[0])), nil
}

func (bf *BuiltInFunctions) TRIM(args ...Primitive) (Primitive, error) {
	if err := requireArgs("TRIM", args, 1, 1); err != nil {
		return nil, err
	}
	// inner runs of spaces collapse to one
	return strings.Join(strings.Fields(toString(args[0])), " "), nil
}

func (bf *BuiltInFunctions) ABS(args ...Primitive) (Primitive, error) {
	if err := requireArgs("ABS", args, 1, 1); err != nil {
		return nil, err
	}
	num, err := numberArg("ABS", args[0])
	if err != nil {
		return nil, err
	}
	return math.Abs(num), nil
}

// roundArgs reads the (number, [places]) arguments of the ROUND family.
func roundArgs(name string, args []Primitive, minArgs int) (num, multiplier float64, err error) {
	if err = requireArgs(name, args, minArgs, 2); err != nil {
		return 0, 0, err
	}
	if num, err = numberArg(name, args[0]); err != nil {
		return 0, 0, err
	}
	places := 0.0
	if len(args) == 2 {
		if places, err = numberArg(name, args[1]); err != nil {
			return 0, 0, err
		}
	}
	return num, math.Pow(10, math.Trunc(places)), nil
}

func (bf *BuiltInFunctions) ROUND(args ...Primitive) (Primitive, error) {
	num, multiplier, err := roundArgs("ROUND", args, 1)
	if err != nil {
		return nil, err
	}
	return math.Round(num*multiplier) / multiplier, nil
}

// ROUNDUP rounds away from zero.
func (bf *BuiltInFunctions) ROUNDUP(args ...Primitive) (Primitive, error) {
	num, multiplier, err := roundArgs("ROUNDUP", args, 2)
	if err != nil {
		return nil, err
	}
	if num < 0 {
		return math.Floor(num*multiplier) / multiplier, nil
	}
	return math.Ceil(num*multiplier) / multiplier, nil
}

// ROUNDDOWN rounds toward zero.
func (bf *BuiltInFunctions) ROUNDDOWN(args ...Primitive) (Primitive, error) {
	num, multiplier, err := roundArgs("ROUNDDOWN", args, 2)
	if err != nil {
		return nil, err
	}
	return math.Trunc(num*multiplier) / multiplier, nil
}

func (bf *BuiltInFunctions) INT(args ...Primitive) (Primitive, error) {
	if err := requireArgs("INT", args, 1, 1); err != nil {
		return nil, err
	}
	num, err := numberArg("INT", args[0])
	if err != nil {
		return nil, err
	}
	return math.Floor(num), nil
}

func (bf *BuiltInFunctions) FLOOR(args ...Primitive) (Primitive, error) {
	if err := requireArgs("FLOOR", args, 1, 1); err != nil {
		return nil, err
	}
	num, err := numberArg("FLOOR", args[0])
	if err != nil {
		return nil, err
	}
	return math.Floor(num), nil
}

func (bf *BuiltInFunctions) CEILING(args ...Primitive) (Primitive, error) {
	if err := requireArgs("CEILING", args, 1, 1); err != nil {
		return nil, err
	}
	num, err := numberArg("CEILING", args[0])
	if err != nil {
		return nil, err
	}
	return math.Ceil(num), nil
}

func (bf *BuiltInFunctions) SQRT(args ...Primitive) (Primitive, error) {
	if err := requireArgs("SQRT", args, 1, 1); err != nil {
		return nil, err
	}
	num, err := numberArg("SQRT", args[0])
	if err != nil {
		return nil, err
	}
	if num < 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeNum, "SQRT requires a non-negative argument")
	}
	return math.Sqrt(num), nil
}

func (bf *BuiltInFunctions) POWER(args ...Primitive) (Primitive, error) {
	if err := requireArgs("POWER", args, 2, 2); err != nil {
		return nil, err
	}
	base, err := numberArg("POWER", args[0])
	if err != nil {
		return nil, err
	}
	exp, err := numberArg("POWER", args[1])
	if err != nil {
		return nil, err
	}
	return math.Pow(base, exp), nil
}

// MOD takes the sign of the divisor.
func (bf *BuiltInFunctions) MOD(args ...Primitive) (Primitive, error) {
	if err := requireArgs("MOD", args, 2, 2); err != nil {
		return nil, err
	}
	dividend, err := numberArg("MOD", args[0])
	if err != nil {
		return nil, err
	}
	divisor, err := numberArg("MOD", args[1])
	if err != nil {
		return nil, err
	}
	if divisor == 0 {
		return nil, NewSpreadsheetError(spreadsheet.ErrorCodeDiv0, "Division by zero")
	}
	return dividend - divisor*math.Floor(dividend/divisor), nil
}

func (bf *BuiltInFunctions) PI(args ...Primitive) (Primitive, error) {
	if err := requireArgs("PI", args, 0, 0); err != nil {
		return nil, err
	}
	return math.Pi, nil
}

// Excel date/time constants
const (
	// December 30, 1899 00:00:00 UTC in Unix milliseconds. from March 1,
	// 1900 on this counts the phantom February 29, 1900 as Excel does
	EXCEL_EPOCH_MS = -2209161600000
	MS_PER_DAY     = 86400000 // milliseconds in a day
)

// leapBugEnd is serial 61. serial 60 is February 29, 1900, which never
// existed.
var leapBugEnd = time.Date(1900, time.March, 1, 0, 0, 0, 0, time.UTC)

// serial converts a wall time to a date serial number, keeping the time of
// day as seen in the time's own location.
func serial(t time.Time) float64 {
	local := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
	days := float64(local.UnixMilli()-EXCEL_EPOCH_MS) / MS_PER_DAY
	if local.Before(leapBugEnd) {
		days--
	}
	return days
}

func (bf *BuiltInFunctions) NOW(args ...Primitive) (Primitive, error) {
	if err := requireArgs("NOW", args, 0, 0); err != nil {
		return nil, err
	}
	return serial(bf.clock.Now()), nil
}

func (bf *BuiltInFunctions) TODAY(args ...Primitive) (Primitive, error) {
	if err := requireArgs("TODAY", args, 0, 0); err != nil {
		return nil, err
	}
	return math.Floor(serial(bf.clock.Now())), nil
}

func (bf *BuiltInFunctions) RAND(args ...Primitive) (Primitive, error) {
	if err := requireArgs("RAND", args, 0, 0); err != nil {
		return nil, err
	}
	return bf.rng.Float64(), nil
}

// isVolatileFunction returns true if the function should be recalculated on
// every evaluation
func isVolatileFunction(name string) bool {
	switch strings.ToUpper(name) {
	case "NOW", "TODAY", "RAND":
		return true
	default:
		return false
	}
}

// toNumber converts value to number, returning ok=false if conversion fails
func toNumber(value Primitive) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case string:
		num, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return num, true
	case nil:
		return 0, true
	default:
		return 0, false
	}
}

// toString converts value to the text a cell would display
func toString(value Primitive) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return spreadsheet.FormatNumber(v)
	case bool:
		return BoolValue(v).String()
	case *SpreadsheetError:
		return v.ErrorCode.String()
	default:
		return fmt.Sprint(value)
	}
}

// isTruthy checks if value is truthy
func isTruthy(value Primitive) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return strings.EqualFold(v, "TRUE")
	case nil:
		return false
	default:
		return true
	}
}
