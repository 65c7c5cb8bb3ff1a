package evaluator

import (
	"log/slog"

	"github.com/vogtb/go-spreadsheet/packages/formula"
)

type options struct {
	logger                 *slog.Logger
	ignoreMissingWorkbooks bool
	debug                  bool
	udfs                   map[string]formula.UserDefinedFunction
	clock                  formula.Clock
	random                 formula.RandomGenerator
}

// Option configures a FormulaEvaluator
type Option func(*options)

// WithLogger sets the logger for evaluation and debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithIgnoreMissingWorkbooks uses cached results for formulas that refer
// to workbooks that are not available.
func WithIgnoreMissingWorkbooks(ignore bool) Option {
	return func(o *options) {
		o.ignoreMissingWorkbooks = ignore
	}
}

// WithDebugEvaluationOutput traces the first evaluation.
func WithDebugEvaluationOutput(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithUserDefinedFunctions registers functions callable from formulas by
// name. names are case-insensitive and must not shadow a built-in.
func WithUserDefinedFunctions(udfs map[string]formula.UserDefinedFunction) Option {
	return func(o *options) {
		if o.udfs == nil {
			o.udfs = make(map[string]formula.UserDefinedFunction, len(udfs))
		}
		for name, fn := range udfs {
			o.udfs[name] = fn
		}
	}
}

// WithClock sets the time source of NOW and TODAY.
func WithClock(clock formula.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithRandom sets the random source of RAND.
func WithRandom(random formula.RandomGenerator) Option {
	return func(o *options) {
		o.random = random
	}
}
