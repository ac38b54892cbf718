package l1_service

import (
	"fmt"
	"math"
	"math/rand"

	"ttindex/internal/domain"
	"ttindex/internal/logger"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

const (
	// WeightTolerance is used for every equality and inequality check
	// on solved weights.
	WeightTolerance = 1e-6
	DefaultSeed     = 123

	maxLocalIterations = 10_000
	localTolerance     = 1e-12
	// 0 < learningRate < 0.5 makes every projected gradient step a
	// contraction, so the local search always settles
	learningRate       = 0.1
	maxBisectionRounds = 200
	improvementEpsilon = 1e-12
	defaultIterations  = 100
	defaultStepSize    = 0.5
	defaultParallelism = 4
)

// SolverOptions controls the global search. The random generator is
// rebuilt from Seed on every Solve call so identical inputs always
// produce identical weights. Zero or negative fields take their
// defaults, so a Seed of 0 runs with DefaultSeed.
type SolverOptions struct {
	Seed        int64   `yaml:"seed" json:"seed"`
	Iterations  int     `yaml:"iterations" json:"iterations"`
	StepSize    float64 `yaml:"stepSize" json:"stepSize"`
	Parallelism int     `yaml:"parallelism" json:"parallelism"`
}

func DefaultSolverOptions() SolverOptions {
	return SolverOptions{
		Seed:        DefaultSeed,
		Iterations:  defaultIterations,
		StepSize:    defaultStepSize,
		Parallelism: defaultParallelism,
	}
}

func (o SolverOptions) withDefaults() SolverOptions {
	d := DefaultSolverOptions()
	if o.Iterations > 0 {
		d.Iterations = o.Iterations
	}
	if o.StepSize > 0 {
		d.StepSize = o.StepSize
	}
	if o.Parallelism > 0 {
		d.Parallelism = o.Parallelism
	}
	if o.Seed != 0 {
		d.Seed = o.Seed
	}
	return d
}

type SolveWeightsInput struct {
	Origin    []float64
	Target    []float64
	MaxChange float64
	MinWeight float64
	MaxWeight float64
}

// WeightSolver finds normalized weights as close as possible to a
// target while each weight moves at most MaxChange away from the
// origin and stays within [MinWeight, MaxWeight].
type WeightSolver interface {
	Solve(in SolveWeightsInput) ([]float64, error)
}

type weightSolverHandler struct {
	Options SolverOptions
}

func NewWeightSolver(opts SolverOptions) WeightSolver {
	return weightSolverHandler{
		Options: opts.withDefaults(),
	}
}

type weightBounds struct {
	lower []float64
	upper []float64
}

type localResult struct {
	x          []float64
	cost       float64
	iterations int
	err        error
}

// Solve minimizes sum((x - target)^2) subject to sum(x) = 1,
// |x - origin| <= MaxChange and MinWeight <= x <= MaxWeight. When an
// origin weight is so far outside the weight bounds that one step
// cannot reach them, the change bound is kept and the weight bound
// is relaxed for that element only.
//
// The search perturbs the origin Iterations times, runs a projected
// gradient descent from each starting point and keeps the lowest cost
// converged result. Restarts run concurrently but are drawn from the
// seeded generator up front and ranked by (cost, index), so the output
// does not depend on scheduling.
func (h weightSolverHandler) Solve(in SolveWeightsInput) ([]float64, error) {
	if err := validateSolveInput(in); err != nil {
		return nil, err
	}

	bounds, relaxed := constraintBounds(in)
	if relaxed > 0 {
		logger.Debug("relaxed weight bounds for %d element(s) to honor max change %f", relaxed, in.MaxChange)
	}
	if err := bounds.admitsNormalizedWeights(); err != nil {
		return nil, err
	}

	starts := h.startingPoints(in.Origin)
	results := make([]localResult, len(starts))

	g := errgroup.Group{}
	g.SetLimit(h.Options.Parallelism)
	for i, x0 := range starts {
		g.Go(func() error {
			x, iterations, err := minimizeFrom(x0, in.Target, bounds)
			results[i] = localResult{
				x:          x,
				iterations: iterations,
				err:        err,
			}
			if err == nil {
				results[i].cost = squaredDistance(x, in.Target)
			}
			return nil
		})
	}
	// restart failures are collected in results, not returned
	_ = g.Wait()

	best := -1
	var lastErr error
	for i, r := range results {
		if r.err != nil {
			lastErr = r.err
			continue
		}
		if best == -1 || r.cost < results[best].cost {
			best = i
		}
	}
	if best == -1 {
		return nil, domain.OptimizationError{
			Reason: domain.OptimizationFailureReason_NonConvergence,
			Msg:    fmt.Sprintf("none of %d local searches converged: %v", len(results), lastErr),
		}
	}

	weights := results[best].x
	if err := verifyWeights(weights, in, bounds); err != nil {
		return nil, err
	}

	return weights, nil
}

func validateSolveInput(in SolveWeightsInput) error {
	if len(in.Origin) == 0 {
		return domain.ValidationError{Field: "origin", Msg: "cannot solve weights for 0 elements"}
	}
	if len(in.Origin) != len(in.Target) {
		return domain.ValidationError{
			Field: "target",
			Msg:   fmt.Sprintf("origin has %d elements but target has %d", len(in.Origin), len(in.Target)),
		}
	}
	if floats.HasNaN(in.Origin) || floats.HasNaN(in.Target) {
		return domain.ValidationError{Field: "target", Msg: "weights contain NaN"}
	}
	if math.Abs(floats.Sum(in.Target)-1) > WeightTolerance {
		return domain.ValidationError{
			Field: "target",
			Msg:   fmt.Sprintf("target weights are not normalized (sum %f)", floats.Sum(in.Target)),
		}
	}
	if in.MaxChange < 0 {
		return domain.ValidationError{Field: "maxChange", Msg: "must not be negative"}
	}
	if in.MinWeight > in.MaxWeight {
		return domain.ValidationError{
			Field: "minWeight",
			Msg:   fmt.Sprintf("min weight %f is above max weight %f", in.MinWeight, in.MaxWeight),
		}
	}
	return nil
}

// constraintBounds intersects the change interval around each origin
// weight with the weight bounds. Where the two do not overlap the
// element is pinned to the change interval end closest to the weight
// bounds.
func constraintBounds(in SolveWeightsInput) (weightBounds, int) {
	n := len(in.Origin)
	b := weightBounds{
		lower: make([]float64, n),
		upper: make([]float64, n),
	}
	relaxed := 0
	for i, o := range in.Origin {
		lo := math.Max(in.MinWeight, o-in.MaxChange)
		hi := math.Min(in.MaxWeight, o+in.MaxChange)
		if lo > hi {
			relaxed++
			if o-in.MaxChange > in.MaxWeight {
				lo, hi = o-in.MaxChange, o-in.MaxChange
			} else {
				lo, hi = o+in.MaxChange, o+in.MaxChange
			}
		}
		b.lower[i] = lo
		b.upper[i] = hi
	}
	return b, relaxed
}

func (b weightBounds) admitsNormalizedWeights() error {
	lowerSum := floats.Sum(b.lower)
	upperSum := floats.Sum(b.upper)
	if lowerSum > 1+WeightTolerance || upperSum < 1-WeightTolerance {
		return domain.OptimizationError{
			Reason: domain.OptimizationFailureReason_NonConvergence,
			Msg:    fmt.Sprintf("constraints are infeasible: attainable weight sums lie in [%f, %f]", lowerSum, upperSum),
		}
	}
	return nil
}

func (h weightSolverHandler) startingPoints(origin []float64) [][]float64 {
	rng := rand.New(rand.NewSource(h.Options.Seed))
	starts := make([][]float64, 0, h.Options.Iterations+1)
	starts = append(starts, append([]float64{}, origin...))
	for k := 0; k < h.Options.Iterations; k++ {
		x := make([]float64, len(origin))
		for i := range origin {
			x[i] = origin[i] + (2*rng.Float64()-1)*h.Options.StepSize
		}
		starts = append(starts, x)
	}
	return starts
}

// minimizeFrom runs projected gradient descent on sum((x - target)^2)
// over the feasible set, starting from the projection of x0.
func minimizeFrom(x0, target []float64, b weightBounds) ([]float64, int, error) {
	n := len(x0)
	x := project(x0, b)
	grad := make([]float64, n)
	y := make([]float64, n)

	for iteration := 1; iteration <= maxLocalIterations; iteration++ {
		floats.SubTo(grad, x, target)
		floats.Scale(2, grad)
		floats.AddScaledTo(y, x, -learningRate, grad)

		next := project(y, b)
		delta := floats.Distance(next, x, math.Inf(1))
		x = next
		if math.IsNaN(delta) {
			return nil, iteration, fmt.Errorf("local search diverged after %d iterations", iteration)
		}
		if delta < localTolerance {
			return x, iteration, nil
		}
	}

	return nil, maxLocalIterations, fmt.Errorf("local search did not converge in %d iterations", maxLocalIterations)
}

// project returns the Euclidean projection of y onto
// {x : lower <= x <= upper, sum(x) = 1}. The projection has the form
// clip(y - lambda, lower, upper); lambda is bracketed by bisection and
// then solved exactly on the free elements.
func project(y []float64, b weightBounds) []float64 {
	lambdaLo, lambdaHi := math.Inf(1), math.Inf(-1)
	for i := range y {
		lambdaLo = math.Min(lambdaLo, y[i]-b.upper[i])
		lambdaHi = math.Max(lambdaHi, y[i]-b.lower[i])
	}

	x := make([]float64, len(y))
	for round := 0; round < maxBisectionRounds; round++ {
		mid := (lambdaLo + lambdaHi) / 2
		if mid <= lambdaLo || mid >= lambdaHi {
			break
		}
		if clipShifted(x, y, mid, b) > 1 {
			lambdaLo = mid
		} else {
			lambdaHi = mid
		}
	}
	lambda := (lambdaLo + lambdaHi) / 2
	clipShifted(x, y, lambda, b)

	free := 0
	freeSum, boundSum := 0.0, 0.0
	for i := range x {
		if x[i] > b.lower[i] && x[i] < b.upper[i] {
			free++
			freeSum += y[i]
		} else {
			boundSum += x[i]
		}
	}
	if free > 0 {
		exact := (freeSum + boundSum - 1) / float64(free)
		for i := range x {
			if x[i] > b.lower[i] && x[i] < b.upper[i] {
				x[i] = math.Max(b.lower[i], math.Min(b.upper[i], y[i]-exact))
			}
		}
	}

	return x
}

func clipShifted(dst, y []float64, lambda float64, b weightBounds) float64 {
	sum := 0.0
	for i := range y {
		dst[i] = math.Max(b.lower[i], math.Min(b.upper[i], y[i]-lambda))
		sum += dst[i]
	}
	return sum
}

func squaredDistance(x, y []float64) float64 {
	d := floats.Distance(x, y, 2)
	return d * d
}

// verifyWeights re-checks every constraint on the solved weights, so a
// numerical slip surfaces as an error instead of a silently broken
// portfolio.
func verifyWeights(x []float64, in SolveWeightsInput, b weightBounds) error {
	if sum := floats.Sum(x); math.Abs(sum-1) > WeightTolerance {
		return domain.OptimizationError{
			Reason: domain.OptimizationFailureReason_NormalizationViolated,
			Msg:    fmt.Sprintf("weights sum to %f", sum),
		}
	}

	for i := range x {
		change := math.Abs(x[i] - in.Origin[i])
		if change > in.MaxChange+WeightTolerance {
			return domain.OptimizationError{
				Reason: domain.OptimizationFailureReason_ChangeBoundViolated,
				Msg:    fmt.Sprintf("element %d moved %f, max change is %f", i, change, in.MaxChange),
			}
		}
	}

	for i := range x {
		// a weight bound only binds where the change bound lets it
		minWeight := math.Min(in.MinWeight, in.Origin[i]+in.MaxChange)
		maxWeight := math.Max(in.MaxWeight, in.Origin[i]-in.MaxChange)
		if x[i] < minWeight-WeightTolerance {
			return domain.OptimizationError{
				Reason: domain.OptimizationFailureReason_WeightBoundViolated,
				Msg:    fmt.Sprintf("element %d has weight %f, min weight is %f", i, x[i], in.MinWeight),
			}
		}
		if x[i] > maxWeight+WeightTolerance {
			return domain.OptimizationError{
				Reason: domain.OptimizationFailureReason_WeightBoundViolated,
				Msg:    fmt.Sprintf("element %d has weight %f, max weight is %f", i, x[i], in.MaxWeight),
			}
		}
	}

	// doing nothing is always an option when the origin is feasible
	if originFeasible(in.Origin, b) {
		if squaredDistance(x, in.Target) > squaredDistance(in.Origin, in.Target)+improvementEpsilon {
			return domain.OptimizationError{
				Reason: domain.OptimizationFailureReason_NonConvergence,
				Msg:    "solved weights are farther from the target than the origin",
			}
		}
	}

	return nil
}

func originFeasible(origin []float64, b weightBounds) bool {
	if math.Abs(floats.Sum(origin)-1) > WeightTolerance {
		return false
	}
	for i, o := range origin {
		if o < b.lower[i]-WeightTolerance || o > b.upper[i]+WeightTolerance {
			return false
		}
	}
	return true
}
