package compliance

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/shopspring/decimal"
)

// Default threshold constants, reproduced by the default compiled
// expressions below so an operator who never reconfigures anything gets
// exactly the literal spec values.
const (
	DefaultEDDThreshold            = "3000"
	DefaultReportingThreshold      = "10000"
	DefaultHighSeverityThreshold   = "50000"
)

// ThresholdSet holds the CEL expressions evaluated against an amount. An
// operator can override any of them (e.g. a jurisdiction with a lower CTR
// bar) without recompiling the binary.
type ThresholdSet struct {
	EDDExpr          string
	ReportingExpr    string
	HighSeverityExpr string
}

// DefaultThresholds reproduces the spec's literal constants: EDD at
// $3,000, CTR at $10,000, high severity at $50,000.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		EDDExpr:          fmt.Sprintf("amount >= %s", DefaultEDDThreshold),
		ReportingExpr:    fmt.Sprintf("amount >= %s", DefaultReportingThreshold),
		HighSeverityExpr: fmt.Sprintf("amount >= %s", DefaultHighSeverityThreshold),
	}
}

// ThresholdEvaluator compiles and caches CEL programs against amounts,
// grounded on the teacher's CELPolicyEvaluator (cel.NewEnv + a
// compile-once, cache-by-expression-string Program map). Keeping the
// compiled program cached keeps the check CPU-bound and non-suspending per
// the concurrency model.
type ThresholdEvaluator struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
	set      ThresholdSet
}

// NewThresholdEvaluator compiles an environment with a single `amount`
// double variable and pre-warms the program cache for the given set.
func NewThresholdEvaluator(set ThresholdSet) (*ThresholdEvaluator, error) {
	env, err := cel.NewEnv(cel.Variable("amount", cel.DoubleType))
	if err != nil {
		return nil, fmt.Errorf("compliance: cel environment: %w", err)
	}
	e := &ThresholdEvaluator{env: env, programs: make(map[string]cel.Program), set: set}
	for _, expr := range []string{set.EDDExpr, set.ReportingExpr, set.HighSeverityExpr} {
		if _, err := e.program(expr); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func (e *ThresholdEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, hit := e.programs[expr]
	e.mu.RUnlock()
	if hit {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prg, hit = e.programs[expr]; hit {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compliance: threshold expression %q: %w", expr, issues.Err())
	}
	p, err := e.env.Program(ast, cel.InterruptCheckFrequency(100), cel.CostLimit(1000))
	if err != nil {
		return nil, fmt.Errorf("compliance: threshold program %q: %w", expr, err)
	}
	e.programs[expr] = p
	return p, nil
}

func (e *ThresholdEvaluator) evaluate(expr string, amount decimal.Decimal) (bool, error) {
	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}
	f, _ := amount.Float64()
	out, _, err := prg.Eval(map[string]interface{}{"amount": f})
	if err != nil {
		return false, fmt.Errorf("compliance: threshold eval %q: %w", expr, err)
	}
	val, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("compliance: threshold expression %q did not return a bool", expr)
	}
	return val, nil
}

// TriggersEDD reports whether amount meets the enhanced-due-diligence bar.
func (e *ThresholdEvaluator) TriggersEDD(amount decimal.Decimal) (bool, error) {
	return e.evaluate(e.set.EDDExpr, amount)
}

// TriggersReporting reports whether amount meets the CTR reporting bar.
func (e *ThresholdEvaluator) TriggersReporting(amount decimal.Decimal) (bool, error) {
	return e.evaluate(e.set.ReportingExpr, amount)
}

// TriggersHighSeverity reports whether amount meets the high-severity CTR
// escalation bar.
func (e *ThresholdEvaluator) TriggersHighSeverity(amount decimal.Decimal) (bool, error) {
	return e.evaluate(e.set.HighSeverityExpr, amount)
}
