package solver

import (
	"context"
	"math"
	"sort"
)

const (
	defaultNodeLimit = 4_000_000
	ctxCheckInterval = 1024
	feasibilityEps   = 1e-6
)

// BranchBound is a depth-first branch-and-bound search over the binary
// decision variables of a model. Auxiliary integer variables are resolved at
// each leaf to their cheapest feasible value, which is exact as long as each
// constraint contains at most one auxiliary variable and auxiliary objective
// coefficients are non-positive. That is the shape of every model the squad
// engine builds.
type BranchBound struct {
	NodeLimit int
}

func NewBranchBound() *BranchBound {
	return &BranchBound{NodeLimit: defaultNodeLimit}
}

type searchState struct {
	model    *Model
	binaries []int
	aux      []int

	order  []int
	values []float64

	// per-constraint running sums over decided binaries, and the
	// contribution range still reachable from undecided binaries.
	base    []float64
	minFree []float64
	maxFree []float64

	// static contribution range of auxiliary variables per constraint.
	auxMin []float64
	auxMax []float64

	// varCons[v] lists the enabled constraints variable v participates in.
	varCons [][]conCoef

	objSoFar     float64
	posRemaining float64

	found       bool
	bestObj     float64
	bestValues  []float64
	nodes       int
	nodeLimit   int
	interrupted bool
	ctx         context.Context
}

type conCoef struct {
	con  int
	coef float64
}

func (s *BranchBound) Solve(ctx context.Context, model *Model) (Solution, error) {
	state := &searchState{
		model:     model,
		values:    make([]float64, model.NumVars()),
		nodeLimit: s.NodeLimit,
		ctx:       ctx,
	}
	if state.nodeLimit <= 0 {
		state.nodeLimit = defaultNodeLimit
	}
	if ctx.Err() != nil {
		return Solution{Status: StatusInterrupted}, ctx.Err()
	}

	for v := 0; v < model.NumVars(); v++ {
		lower, upper := model.Bounds(v)
		if lower > upper {
			// conflicting fixes leave an empty domain
			return Solution{Status: StatusInfeasible}, nil
		}
		if lower >= 0 && upper <= 1 {
			state.binaries = append(state.binaries, v)
		} else {
			state.aux = append(state.aux, v)
		}
	}

	state.prepare()
	state.search(0)

	if state.interrupted {
		return Solution{Status: StatusInterrupted}, ctx.Err()
	}
	if !state.found {
		return Solution{Status: StatusInfeasible}, nil
	}
	return Solution{
		Status:    StatusOptimal,
		Values:    state.bestValues,
		Objective: state.bestObj,
	}, nil
}

func (st *searchState) prepare() {
	model := st.model
	numCons := len(model.cons)
	st.base = make([]float64, numCons)
	st.minFree = make([]float64, numCons)
	st.maxFree = make([]float64, numCons)
	st.auxMin = make([]float64, numCons)
	st.auxMax = make([]float64, numCons)
	st.varCons = make([][]conCoef, model.NumVars())

	for ci, con := range model.cons {
		if con.Disabled {
			continue
		}
		for _, term := range con.Terms {
			st.varCons[term.Var] = append(st.varCons[term.Var], conCoef{con: ci, coef: term.Coef})
		}
	}

	free := make([]int, 0, len(st.binaries))
	for _, v := range st.binaries {
		lower, upper := model.Bounds(v)
		if lower == upper {
			// pre-fixed by availability exclusions or overrides
			st.values[v] = lower
			st.objSoFar += model.ObjectiveCoef(v) * lower
			for _, cc := range st.varCons[v] {
				st.base[cc.con] += cc.coef * lower
			}
			continue
		}
		free = append(free, v)
		if coef := model.ObjectiveCoef(v); coef > 0 {
			st.posRemaining += coef
		}
		for _, cc := range st.varCons[v] {
			if cc.coef > 0 {
				st.maxFree[cc.con] += cc.coef
			} else {
				st.minFree[cc.con] += cc.coef
			}
		}
	}

	for _, v := range st.aux {
		lower, upper := model.Bounds(v)
		for _, cc := range st.varCons[v] {
			lo, hi := cc.coef*lower, cc.coef*upper
			if lo > hi {
				lo, hi = hi, lo
			}
			st.auxMin[cc.con] += lo
			st.auxMax[cc.con] += hi
		}
	}

	// Deterministic exploration order: strongest objective pull first, ties
	// by variable index (players enter the model in ascending id order).
	sort.SliceStable(free, func(i, j int) bool {
		return model.ObjectiveCoef(free[i]) > model.ObjectiveCoef(free[j])
	})
	st.order = free
}

func (st *searchState) search(depth int) {
	if st.interrupted {
		return
	}
	st.nodes++
	if st.nodes > st.nodeLimit {
		st.interrupted = true
		return
	}
	if st.nodes%ctxCheckInterval == 0 && st.ctx.Err() != nil {
		st.interrupted = true
		return
	}

	if st.found && st.upperBound() <= st.bestObj+feasibilityEps {
		return
	}

	if depth == len(st.order) {
		st.evaluateLeaf()
		return
	}

	v := st.order[depth]
	first, second := 1.0, 0.0
	if st.model.ObjectiveCoef(v) < 0 {
		first, second = 0.0, 1.0
	}
	for _, value := range []float64{first, second} {
		if !st.assign(v, value) {
			st.unassign(v, value)
			continue
		}
		st.search(depth + 1)
		st.unassign(v, value)
		if st.interrupted {
			return
		}
	}
}

func (st *searchState) upperBound() float64 {
	bound := st.objSoFar + st.posRemaining
	for _, v := range st.aux {
		coef := st.model.ObjectiveCoef(v)
		if coef == 0 {
			continue
		}
		lower, upper := st.model.Bounds(v)
		bound += math.Max(coef*lower, coef*upper)
	}
	return bound
}

// assign decides one binary and reports whether the partial assignment can
// still satisfy every enabled constraint.
func (st *searchState) assign(v int, value float64) bool {
	st.values[v] = value
	coef := st.model.ObjectiveCoef(v)
	st.objSoFar += coef * value
	if coef > 0 {
		st.posRemaining -= coef
	}

	ok := true
	for _, cc := range st.varCons[v] {
		st.base[cc.con] += cc.coef * value
		if cc.coef > 0 {
			st.maxFree[cc.con] -= cc.coef
		} else {
			st.minFree[cc.con] -= cc.coef
		}
		if !st.constraintReachable(cc.con) {
			ok = false
		}
	}
	return ok
}

func (st *searchState) unassign(v int, value float64) {
	coef := st.model.ObjectiveCoef(v)
	st.objSoFar -= coef * value
	if coef > 0 {
		st.posRemaining += coef
	}
	for _, cc := range st.varCons[v] {
		st.base[cc.con] -= cc.coef * value
		if cc.coef > 0 {
			st.maxFree[cc.con] += cc.coef
		} else {
			st.minFree[cc.con] += cc.coef
		}
	}
}

func (st *searchState) constraintReachable(ci int) bool {
	con := st.model.cons[ci]
	if con.Disabled {
		return true
	}
	minPossible := st.base[ci] + st.minFree[ci] + st.auxMin[ci]
	maxPossible := st.base[ci] + st.maxFree[ci] + st.auxMax[ci]
	switch con.Rel {
	case LessEq:
		return minPossible <= con.RHS+feasibilityEps
	case GreaterEq:
		return maxPossible >= con.RHS-feasibilityEps
	default:
		return minPossible <= con.RHS+feasibilityEps && maxPossible >= con.RHS-feasibilityEps
	}
}

// evaluateLeaf resolves auxiliary variables against the complete binary
// assignment, verifies every enabled constraint, and records an improvement.
func (st *searchState) evaluateLeaf() {
	for _, v := range st.aux {
		value, ok := st.resolveAux(v)
		if !ok {
			return
		}
		st.values[v] = value
	}

	objective := st.objSoFar
	for _, v := range st.aux {
		objective += st.model.ObjectiveCoef(v) * st.values[v]
	}

	for ci, con := range st.model.cons {
		if con.Disabled {
			continue
		}
		total := st.base[ci]
		for _, term := range con.Terms {
			if st.isAux(term.Var) {
				total += term.Coef * st.values[term.Var]
			}
		}
		switch con.Rel {
		case LessEq:
			if total > con.RHS+feasibilityEps {
				return
			}
		case GreaterEq:
			if total < con.RHS-feasibilityEps {
				return
			}
		default:
			if math.Abs(total-con.RHS) > feasibilityEps {
				return
			}
		}
	}

	if !st.found || objective > st.bestObj+feasibilityEps {
		st.found = true
		st.bestObj = objective
		st.bestValues = append([]float64(nil), st.values...)
	}
}

func (st *searchState) resolveAux(v int) (float64, bool) {
	lower, upper := st.model.Bounds(v)
	for _, cc := range st.varCons[v] {
		con := st.model.cons[cc.con]
		rest := st.base[cc.con]
		slack := con.RHS - rest
		switch con.Rel {
		case GreaterEq:
			if cc.coef > 0 {
				lower = math.Max(lower, math.Ceil(slack/cc.coef-feasibilityEps))
			} else {
				upper = math.Min(upper, math.Floor(slack/cc.coef+feasibilityEps))
			}
		case LessEq:
			if cc.coef > 0 {
				upper = math.Min(upper, math.Floor(slack/cc.coef+feasibilityEps))
			} else {
				lower = math.Max(lower, math.Ceil(slack/cc.coef-feasibilityEps))
			}
		default:
			lower = math.Max(lower, slack/cc.coef)
			upper = math.Min(upper, slack/cc.coef)
		}
	}
	if lower > upper+feasibilityEps {
		return 0, false
	}

	// Non-positive objective weight means the cheapest feasible value wins.
	if st.model.ObjectiveCoef(v) > 0 && !math.IsInf(upper, 1) {
		return upper, true
	}
	return lower, true
}

func (st *searchState) isAux(v int) bool {
	lower, upper := st.model.Bounds(v)
	return !(lower >= 0 && upper <= 1)
}
