// Package solver exposes integer-program solving behind a narrow capability
// interface: accept a model, return a status and an assignment. The squad
// engine stays solver-agnostic; tests script the interface with fakes.
package solver

import (
	"context"
	"fmt"
	"math"
)

type Status string

const (
	StatusOptimal     Status = "optimal"
	StatusInfeasible  Status = "infeasible"
	StatusInterrupted Status = "interrupted"
)

type Relation string

const (
	LessEq    Relation = "<="
	GreaterEq Relation = ">="
	Equal     Relation = "="
)

// Term is one coefficient of a linear expression.
type Term struct {
	Var  int
	Coef float64
}

// Constraint is a linear constraint over model variables. Disabled
// constraints stay in the model but are skipped by the solver, which is how
// the transfer hard cap is switched off during relaxation.
type Constraint struct {
	Name     string
	Terms    []Term
	Rel      Relation
	RHS      float64
	Disabled bool
}

// Var is an integer-valued decision variable. Binary decisions use bounds
// [0,1]; auxiliary counters use [0,+Inf).
type Var struct {
	Name  string
	Lower float64
	Upper float64
}

// Model is a maximization integer program under construction.
type Model struct {
	vars      []Var
	objective []float64
	cons      []Constraint
}

func NewModel() *Model {
	return &Model{}
}

func (m *Model) AddBinary(name string) int {
	return m.addVar(Var{Name: name, Lower: 0, Upper: 1})
}

func (m *Model) AddIntVar(name string, lower, upper float64) int {
	return m.addVar(Var{Name: name, Lower: lower, Upper: upper})
}

func (m *Model) addVar(v Var) int {
	m.vars = append(m.vars, v)
	m.objective = append(m.objective, 0)
	return len(m.vars) - 1
}

func (m *Model) SetObjectiveCoef(v int, coef float64) {
	m.objective[v] = coef
}

func (m *Model) ObjectiveCoef(v int) float64 {
	return m.objective[v]
}

// AddConstraint appends a constraint and returns its index so callers can
// toggle it later.
func (m *Model) AddConstraint(c Constraint) int {
	m.cons = append(m.cons, c)
	return len(m.cons) - 1
}

func (m *Model) SetConstraintDisabled(idx int, disabled bool) {
	m.cons[idx].Disabled = disabled
}

// Fix pins a variable by intersecting its bounds with the value. Conflicting
// fixes leave an empty domain, which the solver reports as infeasible rather
// than letting the later fix win silently.
func (m *Model) Fix(v int, value float64) {
	m.vars[v].Lower = math.Max(m.vars[v].Lower, value)
	m.vars[v].Upper = math.Min(m.vars[v].Upper, value)
}

func (m *Model) SetBounds(v int, lower, upper float64) {
	m.vars[v].Lower = lower
	m.vars[v].Upper = upper
}

func (m *Model) Bounds(v int) (float64, float64) {
	return m.vars[v].Lower, m.vars[v].Upper
}

func (m *Model) NumVars() int {
	return len(m.vars)
}

func (m *Model) VarName(v int) string {
	return m.vars[v].Name
}

// Solution carries the solver verdict and, when optimal, one assignment.
type Solution struct {
	Status    Status
	Values    []float64
	Objective float64
}

// Value returns the assignment of one variable.
func (s Solution) Value(v int) (float64, error) {
	if v < 0 || v >= len(s.Values) {
		return 0, fmt.Errorf("variable index %d outside solution of size %d", v, len(s.Values))
	}
	return s.Values[v], nil
}

// Solver accepts a model and returns a status plus assignment. A production
// deployment can back this with a commercial MIP solver; the in-repo
// BranchBound implementation covers the model class this engine emits.
type Solver interface {
	Solve(ctx context.Context, model *Model) (Solution, error)
}
