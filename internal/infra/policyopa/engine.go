package policyopa

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"

	"arbiter/internal/domain"
)

const defaultQuery = "data.arbiter.visibility.result"

//go:embed policy.rego
var visibilityPolicy string

// Engine evaluates the role visibility policy.
type Engine struct {
	query rego.PreparedEvalQuery
}

func NewEngine(ctx context.Context) (*Engine, error) {
	return NewEngineFromModule(ctx, "visibility.rego", visibilityPolicy)
}

// NewEngineFromModule compiles a replacement policy. It must define the same result shape.
func NewEngineFromModule(ctx context.Context, filename, module string) (*Engine, error) {
	capabilities := ast.CapabilitiesForThisVersion()
	capabilities.Builtins = filterBuiltins(capabilities.Builtins)
	compiler := ast.NewCompiler().WithCapabilities(capabilities)

	r := rego.New(
		rego.Query(defaultQuery),
		rego.Compiler(compiler),
		rego.StrictBuiltinErrors(true),
		rego.Module(filename, module),
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}
	if err := assertNoForbiddenBuiltins(compiler); err != nil {
		return nil, err
	}
	return &Engine{query: prepared}, nil
}

type policyInput struct {
	Role     string              `json:"role"`
	Sections map[string][]string `json:"sections"`
}

type policyResult struct {
	Role    string   `json:"role"`
	Visible []string `json:"visible"`
}

func (e *Engine) Evaluate(ctx context.Context, role string, sections map[string][]string) (domain.Visibility, error) {
	if e == nil {
		return domain.Visibility{}, errors.New("policy engine is nil")
	}
	if sections == nil {
		sections = map[string][]string{}
	}
	input := policyInput{Role: strings.ToLower(strings.TrimSpace(role)), Sections: sections}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return domain.Visibility{}, err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return domain.Visibility{}, errors.New("empty policy result")
	}
	result, err := decodePolicyResult(results[0].Expressions[0].Value)
	if err != nil {
		return domain.Visibility{}, err
	}
	sort.Strings(result.Visible)
	if result.Visible == nil {
		result.Visible = []string{}
	}
	return domain.Visibility{Role: domain.Role(result.Role), Visible: result.Visible}, nil
}

func decodePolicyResult(value any) (policyResult, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return policyResult{}, err
	}
	var result policyResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return policyResult{}, err
	}
	return result, nil
}

func assertNoForbiddenBuiltins(compiler *ast.Compiler) error {
	if compiler == nil {
		return errors.New("policy compiler is nil")
	}
	forbidden := make(map[string]struct{})
	for _, module := range compiler.Modules {
		ast.WalkTerms(module, func(term *ast.Term) bool {
			call, ok := term.Value.(ast.Call)
			if !ok || len(call) == 0 || call[0] == nil {
				return false
			}
			name := call[0].Value.String()
			if _, ok := ast.BuiltinMap[name]; !ok {
				return false
			}
			if _, ok := allowedBuiltins[name]; ok {
				return false
			}
			forbidden[name] = struct{}{}
			return false
		})
	}
	if len(forbidden) == 0 {
		return nil
	}
	names := make([]string, 0, len(forbidden))
	for name := range forbidden {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Errorf("forbidden builtins: %s", strings.Join(names, ", "))
}
