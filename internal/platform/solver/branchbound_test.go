package solver

import (
	"context"
	"math"
	"testing"
)

func TestBranchBound_SimpleKnapsack(t *testing.T) {
	model := NewModel()
	a := model.AddBinary("a")
	b := model.AddBinary("b")
	c := model.AddBinary("c")
	model.SetObjectiveCoef(a, 10)
	model.SetObjectiveCoef(b, 6)
	model.SetObjectiveCoef(c, 5)
	model.AddConstraint(Constraint{
		Name:  "weight",
		Terms: []Term{{a, 5}, {b, 4}, {c, 3}},
		Rel:   LessEq,
		RHS:   7,
	})

	sol, err := NewBranchBound().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Status)
	}
	// b+c (value 11) beats a alone (value 10)
	if sol.Values[a] != 0 || sol.Values[b] != 1 || sol.Values[c] != 1 {
		t.Fatalf("expected selection {b,c}, got %v", sol.Values)
	}
	if math.Abs(sol.Objective-11) > 1e-9 {
		t.Fatalf("expected objective 11, got %v", sol.Objective)
	}
}

func TestBranchBound_EqualityQuota(t *testing.T) {
	model := NewModel()
	vars := make([]int, 4)
	scores := []float64{9, 1, 8, 2}
	terms := make([]Term, 0, len(vars))
	for i := range vars {
		vars[i] = model.AddBinary("p")
		model.SetObjectiveCoef(vars[i], scores[i])
		terms = append(terms, Term{vars[i], 1})
	}
	model.AddConstraint(Constraint{Name: "quota", Terms: terms, Rel: Equal, RHS: 2})

	sol, err := NewBranchBound().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Status)
	}
	if sol.Values[vars[0]] != 1 || sol.Values[vars[2]] != 1 {
		t.Fatalf("expected the two highest scores selected, got %v", sol.Values)
	}
	if sol.Values[vars[1]] != 0 || sol.Values[vars[3]] != 0 {
		t.Fatalf("expected exactly two selections, got %v", sol.Values)
	}
}

func TestBranchBound_ConflictingFixesInfeasible(t *testing.T) {
	model := NewModel()
	v := model.AddBinary("v")
	model.SetObjectiveCoef(v, 1)
	model.Fix(v, 0)
	model.Fix(v, 1)

	sol, err := NewBranchBound().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Status != StatusInfeasible {
		t.Fatalf("expected infeasible on empty domain, got %s", sol.Status)
	}
}

func TestBranchBound_DisabledConstraintIsSkipped(t *testing.T) {
	model := NewModel()
	a := model.AddBinary("a")
	b := model.AddBinary("b")
	model.SetObjectiveCoef(a, 3)
	model.SetObjectiveCoef(b, 2)
	blocker := model.AddConstraint(Constraint{
		Name:  "at-most-zero",
		Terms: []Term{{a, 1}, {b, 1}},
		Rel:   LessEq,
		RHS:   0,
	})

	sol, err := NewBranchBound().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Status != StatusOptimal || sol.Objective != 0 {
		t.Fatalf("expected empty optimum under blocker, got %s obj=%v", sol.Status, sol.Objective)
	}

	model.SetConstraintDisabled(blocker, true)
	sol, err = NewBranchBound().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("re-solve failed: %v", err)
	}
	if sol.Objective != 5 {
		t.Fatalf("expected objective 5 once blocker disabled, got %v", sol.Objective)
	}
}

func TestBranchBound_AuxiliarySlackVariable(t *testing.T) {
	// Three binaries, a "keep" count, and a penalized overflow variable:
	// overflow >= dropped - 1, overflow penalized by -10. Maximizing value
	// forces dropping two incumbents, so overflow must resolve to 1.
	model := NewModel()
	keepA := model.AddBinary("keep-a")
	keepB := model.AddBinary("keep-b")
	newC := model.AddBinary("new-c")
	overflow := model.AddIntVar("overflow", 0, math.Inf(1))
	model.SetObjectiveCoef(keepA, 1)
	model.SetObjectiveCoef(keepB, 1)
	model.SetObjectiveCoef(newC, 30)
	model.SetObjectiveCoef(overflow, -10)

	// exactly one slot
	model.AddConstraint(Constraint{
		Name:  "slots",
		Terms: []Term{{keepA, 1}, {keepB, 1}, {newC, 1}},
		Rel:   Equal,
		RHS:   1,
	})
	// overflow >= (2 - keepA - keepB) - 1
	model.AddConstraint(Constraint{
		Name:  "overflow-floor",
		Terms: []Term{{overflow, 1}, {keepA, 1}, {keepB, 1}},
		Rel:   GreaterEq,
		RHS:   1,
	})

	sol, err := NewBranchBound().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected optimal, got %s", sol.Status)
	}
	if sol.Values[newC] != 1 {
		t.Fatalf("expected the high-value newcomer selected, got %v", sol.Values)
	}
	if sol.Values[overflow] != 1 {
		t.Fatalf("expected overflow to resolve to 1, got %v", sol.Values[overflow])
	}
	if math.Abs(sol.Objective-20) > 1e-9 {
		t.Fatalf("expected objective 30-10=20, got %v", sol.Objective)
	}
}

func TestBranchBound_HardCapVersusRelaxed(t *testing.T) {
	// With the overflow pinned to zero by a hard cap the model is
	// infeasible; disabling the cap makes it feasible with a penalty.
	model := NewModel()
	newPlayer := model.AddBinary("new")
	overflow := model.AddIntVar("overflow", 0, math.Inf(1))
	model.SetObjectiveCoef(newPlayer, 50)
	model.SetObjectiveCoef(overflow, -20)

	model.AddConstraint(Constraint{
		Name:  "must-pick",
		Terms: []Term{{newPlayer, 1}},
		Rel:   Equal,
		RHS:   1,
	})
	model.AddConstraint(Constraint{
		Name:  "overflow-floor",
		Terms: []Term{{overflow, 1}, {newPlayer, -1}},
		Rel:   GreaterEq,
		RHS:   0,
	})
	hardCap := model.AddConstraint(Constraint{
		Name:  "hard-cap",
		Terms: []Term{{overflow, 1}},
		Rel:   LessEq,
		RHS:   0,
	})

	sol, err := NewBranchBound().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if sol.Status != StatusInfeasible {
		t.Fatalf("expected hard-cap model infeasible, got %s", sol.Status)
	}

	model.SetConstraintDisabled(hardCap, true)
	sol, err = NewBranchBound().Solve(context.Background(), model)
	if err != nil {
		t.Fatalf("relaxed solve failed: %v", err)
	}
	if sol.Status != StatusOptimal {
		t.Fatalf("expected relaxed model optimal, got %s", sol.Status)
	}
	if math.Abs(sol.Objective-30) > 1e-9 {
		t.Fatalf("expected objective 50-20=30, got %v", sol.Objective)
	}
}

func TestBranchBound_ContextCancellation(t *testing.T) {
	model := NewModel()
	terms := make([]Term, 0, 30)
	for i := 0; i < 30; i++ {
		v := model.AddBinary("v")
		model.SetObjectiveCoef(v, float64(i%7)+1)
		terms = append(terms, Term{v, float64(i%5) + 1})
	}
	model.AddConstraint(Constraint{Name: "cap", Terms: terms, Rel: LessEq, RHS: 40})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sol, err := NewBranchBound().Solve(ctx, model)
	if sol.Status != StatusInterrupted {
		t.Fatalf("expected interrupted status, got %s", sol.Status)
	}
	if err == nil {
		t.Fatalf("expected context error")
	}
}

func TestBranchBound_DeterministicTieBreak(t *testing.T) {
	build := func() *Model {
		model := NewModel()
		for i := 0; i < 4; i++ {
			v := model.AddBinary("v")
			model.SetObjectiveCoef(v, 1)
		}
		model.AddConstraint(Constraint{
			Name:  "pick-two",
			Terms: []Term{{0, 1}, {1, 1}, {2, 1}, {3, 1}},
			Rel:   Equal,
			RHS:   2,
		})
		return model
	}

	first, err := NewBranchBound().Solve(context.Background(), build())
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	second, err := NewBranchBound().Solve(context.Background(), build())
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	for i := range first.Values {
		if first.Values[i] != second.Values[i] {
			t.Fatalf("expected identical assignments across runs, got %v vs %v", first.Values, second.Values)
		}
	}
}
