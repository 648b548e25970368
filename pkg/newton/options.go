package newton

import (
	"math/rand"

	"github.com/charmbracelet/log"

	"github.com/PaulKGrimes/supermix-sub001/pkg/matrix"
)

// DefaultSeed seeds the fallback RNG when no source is injected, so runs are
// reproducible.
const DefaultSeed = 1

// Options holds the convergence controls.
type Options struct {
	MaxIter    int     // iteration limit
	FTol       float64 // max |f| convergence threshold
	DxTol      float64 // relative step convergence threshold
	MaxStep    float64 // step length cap; 0 selects 100*max(|x|, n)
	RateFactor float64 // sufficient-decrease factor of the line search
	GradTol    float64 // spurious local-minimum gradient threshold
}

// DefaultOptions returns the standard controls.
func DefaultOptions() Options {
	return Options{
		MaxIter:    100,
		FTol:       1e-10,
		DxTol:      1e-10,
		MaxStep:    0,
		RateFactor: 1e-4,
		GradTol:    1e-6,
	}
}

// Option configures a Solver.
type Option func(*Solver)

// WithOptions replaces the convergence controls. Non-positive fields keep their
// defaults.
func WithOptions(o Options) Option {
	return func(s *Solver) {
		d := DefaultOptions()
		if o.MaxIter > 0 {
			d.MaxIter = o.MaxIter
		}
		if o.FTol > 0 {
			d.FTol = o.FTol
		}
		if o.DxTol > 0 {
			d.DxTol = o.DxTol
		}
		if o.MaxStep > 0 {
			d.MaxStep = o.MaxStep
		}
		if o.RateFactor > 0 {
			d.RateFactor = o.RateFactor
		}
		if o.GradTol > 0 {
			d.GradTol = o.GradTol
		}
		s.opts = d
	}
}

// WithRand injects the random source used when the Jacobian is singular.
// It panics if r is nil.
func WithRand(r *rand.Rand) Option {
	if r == nil {
		panic("newton: WithRand(nil)")
	}
	return func(s *Solver) {
		s.rng = r
	}
}

// WithSeed creates a deterministic random source with the given seed.
func WithSeed(seed int64) Option {
	return func(s *Solver) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithLinearSolver selects the solver for the Newton step (default dense LU).
func WithLinearSolver(ls matrix.LinearSolver) Option {
	return func(s *Solver) {
		if ls != nil {
			s.linear = ls
		}
	}
}

// WithLogger sets the logger for convergence warnings.
func WithLogger(l *log.Logger) Option {
	return func(s *Solver) {
		s.logger = l
	}
}
