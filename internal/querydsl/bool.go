package querydsl

import "github.com/roach88/esq/internal/queryir"

// CompileScope folds a condition list into one clause.
//
// Runs are split at every Or condition. Each run becomes a bool container
// with must, must_not and filter buckets:
//   - Filter placement → filter
//   - Negate placement → must_not
//   - otherwise → must
//
// A run holding a single must leaf and nothing else collapses to that leaf.
// One run is the result as-is; several runs become entries of a should
// array. An empty scope compiles to {"match_all":{}}.
func (c *Compiler) CompileScope(scope queryir.Scope) any {
	return c.compileScope(scope, false)
}

func (c *Compiler) compileScope(scope queryir.Scope, negateSelf bool) any {
	runs := scope.Runs()

	var result any
	var container *Object
	switch len(runs) {
	case 0:
		result = MatchAll()
	case 1:
		result, container = c.compileRun(runs[0])
	default:
		should := make([]any, 0, len(runs))
		for _, run := range runs {
			clause, _ := c.compileRun(run)
			should = append(should, clause)
		}
		container = Obj("should", should)
		result = Obj("bool", container)
	}

	// minimum_should_match only belongs on a container built here.
	if scope.MinimumShouldMatch != nil && container != nil {
		container.Set("minimum_should_match", scope.MinimumShouldMatch)
	}

	if negateSelf {
		result = Obj("bool", Obj("must_not", result))
	}
	return result
}

// compileRun returns the run's clause and, when one was built, the inner
// object of its bool container.
func (c *Compiler) compileRun(run []queryir.Condition) (any, *Object) {
	var must, mustNot, filter []any
	for _, cond := range run {
		clause := c.Translate(cond)
		p := queryir.PlacementOf(cond)
		switch {
		case p.Filter:
			filter = append(filter, clause)
		case p.Negate:
			mustNot = append(mustNot, clause)
		default:
			must = append(must, clause)
		}
	}

	if len(must) == 1 && len(mustNot) == 0 && len(filter) == 0 {
		return must[0], nil
	}

	inner := NewObject()
	if len(must) > 0 {
		inner.Set("must", must)
	}
	if len(mustNot) > 0 {
		inner.Set("must_not", mustNot)
	}
	if len(filter) > 0 {
		inner.Set("filter", filter)
	}
	return Obj("bool", inner), inner
}
