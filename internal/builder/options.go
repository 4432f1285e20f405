package builder

import "github.com/roach88/esq/internal/queryir"

// Option adjusts the placement of one condition.
type Option func(*queryir.Placement)

// Or joins the condition to the previous one with OR.
func Or() Option {
	return func(p *queryir.Placement) { p.Conjunction = queryir.Or }
}

// Not negates the condition.
func Not() Option {
	return func(p *queryir.Placement) { p.Negate = true }
}

// InFilter places the condition in non-scoring filter context.
func InFilter() Option {
	return func(p *queryir.Placement) { p.Filter = true }
}

func placement(opts []Option) queryir.Placement {
	var p queryir.Placement
	for _, opt := range opts {
		if opt != nil {
			opt(&p)
		}
	}
	return p
}
