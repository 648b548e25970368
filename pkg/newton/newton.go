// Package newton solves square nonlinear systems f(x) = 0 by Newton-Raphson
// iteration with a backtracking line search on 0.5*|f|^2.
package newton

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

var ErrDimensionMismatch = errors.New("newton: dimension mismatch")

// Status is the outcome of a Solve.
type Status int

const (
	// Converged: max |f| fell below FTol, or the step fell below DxTol.
	Converged Status = iota
	// Failed: iteration limit reached, or the line search stalled away from a
	// minimum of |f|.
	Failed
	// LocalMinimum: the line search stalled at a point where the gradient of
	// |f|^2 vanishes but f does not.
	LocalMinimum
)

func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	case LocalMinimum:
		return "local minimum"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Problem evaluates the residual and its Jacobian at x.
type Problem interface {
	Calc(x []float64) (fval []float64, jac *mat.Dense, err error)
}

// ProblemFunc adapts a function to Problem.
type ProblemFunc func(x []float64) ([]float64, *mat.Dense, error)

func (f ProblemFunc) Calc(x []float64) ([]float64, *mat.Dense, error) { return f(x) }

// Result is the state at the end of a Solve.
type Result struct {
	X          []float64
	F          []float64
	Iterations int
	Status     Status
}

// NoSolution reports whether the solve did not converge.
func (r Result) NoSolution() bool { return r.Status != Converged }

type Solver struct {
	problem Problem
	opts    Options
	rng     *rand.Rand
	linear  matrix.LinearSolver
	logger  *log.Logger
	last    Result
}

func New(p Problem, opts ...Option) *Solver {
	s := &Solver{
		problem: p,
		opts:    DefaultOptions(),
		linear:  matrix.DenseSolver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(DefaultSeed))
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.last.Status = Failed
	return s
}

// Options returns the active controls.
func (s *Solver) Options() Options { return s.opts }

// X returns the solution of the last Solve.
func (s *Solver) X() []float64 { return s.last.X }

// NoSolution reports whether the last Solve failed to converge.
func (s *Solver) NoSolution() bool { return s.last.NoSolution() }

// point is one evaluation of the problem.
type point struct {
	x, f []float64
	jac  *mat.Dense
	half float64 // 0.5*|f|^2
}

func (s *Solver) eval(x []float64) (point, error) {
	f, jac, err := s.problem.Calc(x)
	if err != nil {
		return point{}, err
	}
	n := len(x)
	if len(f) != n {
		return point{}, fmt.Errorf("%w: %d unknowns, %d residuals", ErrDimensionMismatch, n, len(f))
	}
	if jac == nil {
		return point{}, fmt.Errorf("%w: nil Jacobian", ErrDimensionMismatch)
	}
	if r, c := jac.Dims(); r != n || c != n {
		return point{}, fmt.Errorf("%w: Jacobian %dx%d for %d unknowns", ErrDimensionMismatch, r, c, n)
	}
	half := 0.5 * floats.Dot(f, f)
	if math.IsNaN(half) {
		half = math.Inf(1)
	}
	return point{x: x, f: f, jac: jac, half: half}, nil
}

// Solve iterates from x0. Errors are returned only for malformed problems
// (dimension mismatch, evaluation failure); non-convergence is reported through
// Result.Status.
func (s *Solver) Solve(x0 []float64) (Result, error) {
	n := len(x0)
	if n == 0 {
		return s.finish(Result{Status: Failed}), fmt.Errorf("%w: no unknowns", ErrDimensionMismatch)
	}

	cur, err := s.eval(append([]float64(nil), x0...))
	if err != nil {
		return s.finish(Result{X: x0, Status: Failed}), fmt.Errorf("newton: initial point: %w", err)
	}
	if maxAbs(cur.f) < 0.01*s.opts.FTol {
		return s.finish(Result{X: cur.x, F: cur.f, Status: Converged}), nil
	}

	stpmax := s.opts.MaxStep
	if stpmax <= 0 {
		stpmax = 100 * math.Max(floats.Norm(cur.x, 2), float64(n))
	}

	grad := make([]float64, n)
	neg := make([]float64, n)
	for its := 1; its <= s.opts.MaxIter; its++ {
		gradient(grad, cur.jac, cur.f)

		for i, v := range cur.f {
			neg[i] = -v
		}
		p, err := s.linear.Solve(cur.jac, neg)
		if err != nil {
			s.logger.Warn("newton: singular Jacobian, taking a random step", "iteration", its, "err", err)
			p = s.randomDirection(n, stpmax)
		}

		next, check, err := s.lineSearch(cur, grad, p, stpmax)
		if err != nil {
			return s.finish(Result{X: cur.x, F: cur.f, Iterations: its, Status: Failed}), fmt.Errorf("newton: iteration %d: %w", its, err)
		}

		if maxAbs(next.f) < s.opts.FTol {
			return s.finish(Result{X: next.x, F: next.f, Iterations: its, Status: Converged}), nil
		}

		if check {
			den := math.Max(next.half, 0.5*float64(n))
			test := 0.0
			for i, g := range grad {
				test = math.Max(test, math.Abs(g)*math.Max(math.Abs(next.x[i]), 1)/den)
			}
			status := Failed
			if test < s.opts.GradTol {
				status = LocalMinimum
			}
			s.logger.Warn("newton: line search stalled", "iteration", its, "status", status, "gradient", test)
			return s.finish(Result{X: next.x, F: next.f, Iterations: its, Status: status}), nil
		}

		test := 0.0
		for i := range next.x {
			test = math.Max(test, math.Abs(next.x[i]-cur.x[i])/math.Max(math.Abs(next.x[i]), 1))
		}
		cur = next
		if test < s.opts.DxTol {
			return s.finish(Result{X: cur.x, F: cur.f, Iterations: its, Status: Converged}), nil
		}
	}

	s.logger.Warn("newton: iteration limit reached", "max_iter", s.opts.MaxIter, "residual", maxAbs(cur.f))
	return s.finish(Result{X: cur.x, F: cur.f, Iterations: s.opts.MaxIter, Status: Failed}), nil
}

func (s *Solver) finish(r Result) Result {
	s.last = r
	return r
}

// lineSearch finds x = old.x + lambda*p with sufficient decrease of 0.5*|f|^2,
// backtracking with quadratic then cubic models of the merit function. check is
// true when lambda underflowed; the returned point is then old.
func (s *Solver) lineSearch(old point, grad, p []float64, stpmax float64) (point, bool, error) {
	if norm := floats.Norm(p, 2); norm > stpmax {
		floats.Scale(stpmax/norm, p)
	}
	slope := floats.Dot(grad, p)
	if slope > 0 {
		floats.Scale(-1, p)
		slope = -slope
	}

	test := 0.0
	for i, v := range p {
		test = math.Max(test, math.Abs(v)/math.Max(math.Abs(old.x[i]), 1))
	}
	if test == 0 {
		return old, true, nil
	}
	alamin := s.opts.DxTol / test

	alam, alam2, f2 := 1.0, 0.0, 0.0
	for {
		x := make([]float64, len(p))
		floats.AddScaledTo(x, old.x, alam, p)

		if alam < alamin {
			return old, true, nil
		}

		next, err := s.eval(x)
		if err != nil {
			return point{}, false, err
		}
		if next.half <= old.half+s.opts.RateFactor*alam*slope {
			return next, false, nil
		}

		var tmplam float64
		switch {
		case math.IsInf(next.half, 1):
			tmplam = 0.1 * alam
		case alam == 1:
			tmplam = -slope / (2 * (next.half - old.half - slope))
		default:
			rhs1 := next.half - old.half - alam*slope
			rhs2 := f2 - old.half - alam2*slope
			a := (rhs1/(alam*alam) - rhs2/(alam2*alam2)) / (alam - alam2)
			b := (-alam2*rhs1/(alam*alam) + alam*rhs2/(alam2*alam2)) / (alam - alam2)
			if a == 0 {
				tmplam = -slope / (2 * b)
			} else {
				disc := b*b - 3*a*slope
				switch {
				case disc < 0:
					tmplam = 0.5 * alam
				case b <= 0:
					tmplam = (-b + math.Sqrt(disc)) / (3 * a)
				default:
					tmplam = -slope / (b + math.Sqrt(disc))
				}
			}
			tmplam = math.Min(tmplam, 0.5*alam)
		}
		if math.IsNaN(tmplam) {
			tmplam = 0.1 * alam
		}
		alam2, f2 = alam, next.half
		alam = math.Max(tmplam, 0.1*alam)
	}
}

func (s *Solver) randomDirection(n int, length float64) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = s.rng.NormFloat64()
	}
	if norm := floats.Norm(p, 2); norm > 0 {
		floats.Scale(length/norm, p)
	}
	return p
}

// gradient stores J^T f, the gradient of 0.5*|f|^2.
func gradient(dst []float64, jac *mat.Dense, f []float64) {
	g := mat.NewVecDense(len(dst), dst)
	g.MulVec(jac.T(), mat.NewVecDense(len(f), f))
}

func maxAbs(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m || math.IsNaN(a) {
			m = a
		}
	}
	return m
}
