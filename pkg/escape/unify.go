package escape

import "github.com/lumen-templates/lumen/pkg/diag"

// join reconciles the end contexts of two parallel control-flow paths.
//
// Identical contexts unify to themselves. Contexts that differ only in
// urlPart or jsCtx generalize to the unknown variant of that dimension:
// the later transitions that depend on it will then either not care or
// fail loudly. Every other difference could change a later transition,
// so it is never guessed at; the result is the error context and the
// caller reports AMBIGUOUS_CONTEXT with the contributing locations.
//
// Attribute quoting needs no special case here: a quoted value whose
// quote closes before the join point has already collapsed back to the
// tag state, so such branches compare equal.
func join(a, b Context) Context {
	if a.state == stateError {
		return a
	}
	if b.state == stateError {
		return b
	}
	if a.eq(b) {
		return a
	}

	c := a
	c.urlPart = b.urlPart
	if c.eq(b) {
		c.urlPart = urlPartUnknown
		return c
	}

	c = a
	c.jsCtx = b.jsCtx
	if c.eq(b) {
		c.jsCtx = jsCtxUnknown
		return c
	}

	return Context{
		state: stateError,
		err: tokErrorf(diag.AmbiguousContext,
			"branches end in different contexts: %v, %v", a, b),
	}
}

// candidate is one branch's contribution to a join, kept for diagnostics.
type candidate struct {
	pos diag.Pos
	ctx Context
}

// joinAll unifies the end contexts of all branches of a control node.
// On failure it returns the error context; the caller owns reporting.
func joinAll(cands []candidate) Context {
	out := cands[0].ctx
	for _, cand := range cands[1:] {
		out = join(out, cand.ctx)
	}
	return out
}
