// internal/service/inventory/infrastructure/rule/cel_engine.go
package rule

import (
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"

	"marketplace/internal/service/inventory/domain/port"
)

// CelEngine 用 CEL 表达式评估低库存规则。
// 规则示例: "available <= threshold"、"available + reserved < 10"。
// 编译结果按表达式缓存，规则数量有限，不做淘汰。
type CelEngine struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]cel.Program
}

func NewCelEngine() (*CelEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("sku", cel.StringType),
		cel.Variable("available", cel.IntType),
		cel.Variable("reserved", cel.IntType),
		cel.Variable("threshold", cel.IntType),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create cel environment failed")
	}
	return &CelEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

var _ port.RuleEngine = (*CelEngine)(nil)

func (e *CelEngine) Evaluate(rule string, fact port.Fact) (bool, error) {
	prg, err := e.program(rule)
	if err != nil {
		return false, err
	}
	out, _, err := prg.Eval(map[string]any{
		"sku":       fact.SKU,
		"available": fact.Available,
		"reserved":  fact.Reserved,
		"threshold": fact.Threshold,
	})
	if err != nil {
		return false, errors.Wrapf(err, "evaluate rule %q failed", rule)
	}
	hit, ok := out.Value().(bool)
	if !ok {
		return false, errors.Errorf("rule %q did not evaluate to bool", rule)
	}
	return hit, nil
}

func (e *CelEngine) program(rule string) (cel.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prg, ok := e.programs[rule]; ok {
		return prg, nil
	}
	ast, iss := e.env.Compile(rule)
	if iss.Err() != nil {
		return nil, errors.Wrapf(iss.Err(), "compile rule %q failed", rule)
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, errors.Wrapf(err, "build rule program %q failed", rule)
	}
	e.programs[rule] = prg
	return prg, nil
}
