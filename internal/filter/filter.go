// Package filter selects stored documents with expr-lang boolean expressions.
//
// The expression sees each document's fields as variables, plus "_id" and
// "created_at". Fields whose names are not identifiers are reachable through
// $env, e.g. ($env["GitHub Repo Name"] ?? "") startsWith "acme/".
package filter

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"dsla/internal/domain"
)

// Filter is a compiled document predicate
type Filter struct {
	source  string
	program *vm.Program
}

// Compile parses a filter expression. An empty expression matches everything.
func Compile(source string) (*Filter, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return &Filter{}, nil
	}
	program, err := expr.Compile(source, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return &Filter{source: source, program: program}, nil
}

// String returns the expression source
func (f *Filter) String() string {
	return f.source
}

// Match evaluates the filter against one document
func (f *Filter) Match(doc domain.Document) (bool, error) {
	if f.program == nil {
		return true, nil
	}
	result, err := expr.Run(f.program, env(doc))
	if err != nil {
		return false, fmt.Errorf("evaluate filter on %s: %w", doc.ID, err)
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q did not return bool", f.source)
	}
	return matched, nil
}

// Apply returns the documents the filter matches, in order
func (f *Filter) Apply(docs []domain.Document) ([]domain.Document, error) {
	if f.program == nil {
		return docs, nil
	}
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		ok, err := f.Match(d)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func env(doc domain.Document) map[string]any {
	m := map[string]any(doc.Flatten())
	m["created_at"] = doc.CreatedAt
	return m
}
