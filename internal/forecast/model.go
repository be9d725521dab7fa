package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Point is one training observation: x is the day offset, y the target value.
type Point struct {
	X float64
	Y float64
}

// Model is a fitted polynomial y = c0 + c1*u + c2*u^2 + ... where u = x/Scale.
// It is a plain value: fitting returns one and predicting only reads it.
type Model struct {
	Degree       int       `json:"degree"`
	Coefficients []float64 `json:"coefficients"`
	Scale        float64   `json:"scale"`
	// ResidualStdErr is sqrt(RSS / DoF), zero when DoF is zero.
	ResidualStdErr float64 `json:"residual_std_err"`
	DoF            int     `json:"dof"`
	N              int     `json:"n"`

	// cov is (XᵀX)⁻¹ row-major, (Degree+1)².
	cov []float64
}

// Fit solves the ordinary least-squares problem for the given degree.
// The caller must supply at least degree+1 distinct x values.
func Fit(points []Point, degree int) (Model, error) {
	p := degree + 1
	n := len(points)
	if degree < 0 {
		return Model{}, fmt.Errorf("%w: negative degree %d", ErrFitFailed, degree)
	}
	if n == 0 {
		return Model{}, ErrNoData
	}
	if distinctX(points) < p {
		return Model{}, fmt.Errorf("%w: %d distinct offsets for degree %d", ErrInsufficientVariation, distinctX(points), degree)
	}

	scale := 0.0
	for _, pt := range points {
		scale = math.Max(scale, math.Abs(pt.X))
	}
	if scale == 0 {
		scale = 1
	}

	X := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, nil)
	for i, pt := range points {
		for j, v := range powers(pt.X/scale, p) {
			X.Set(i, j, v)
		}
		y.SetVec(i, pt.Y)
	}

	var qr mat.QR
	qr.Factorize(X)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		return Model{}, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}

	var xtx, inv mat.Dense
	xtx.Mul(X.T(), X)
	if err := inv.Inverse(&xtx); err != nil {
		return Model{}, fmt.Errorf("%w: %v", ErrFitFailed, err)
	}

	m := Model{
		Degree:       degree,
		Coefficients: make([]float64, p),
		Scale:        scale,
		DoF:          n - p,
		N:            n,
		cov:          make([]float64, 0, p*p),
	}
	for j := 0; j < p; j++ {
		c := beta.AtVec(j)
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Model{}, fmt.Errorf("%w: non-finite coefficient", ErrFitFailed)
		}
		m.Coefficients[j] = c
	}
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			m.cov = append(m.cov, inv.At(i, j))
		}
	}

	var rss float64
	for _, pt := range points {
		r := pt.Y - m.Predict(pt.X)
		rss += r * r
	}
	if m.DoF > 0 {
		m.ResidualStdErr = math.Sqrt(rss / float64(m.DoF))
	}
	return m, nil
}

// Predict evaluates the model at x.
func (m Model) Predict(x float64) float64 {
	var y float64
	for j, v := range powers(x/m.Scale, len(m.Coefficients)) {
		y += m.Coefficients[j] * v
	}
	return y
}

// Interval returns the prediction interval at x for a new observation at the
// given two-sided confidence level. With no residual degrees of freedom the
// interval collapses to the point prediction.
func (m Model) Interval(x, level float64) (lo, hi float64) {
	y := m.Predict(x)
	if m.DoF <= 0 || m.ResidualStdErr == 0 || level <= 0 || level >= 1 {
		return y, y
	}
	p := len(m.Coefficients)
	x0 := powers(x/m.Scale, p)
	var leverage float64
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			leverage += x0[i] * m.cov[i*p+j] * x0[j]
		}
	}
	if leverage < 0 {
		leverage = 0
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(m.DoF)}.Quantile(1 - (1-level)/2)
	half := t * m.ResidualStdErr * math.Sqrt(1+leverage)
	return y - half, y + half
}

// RSquared is the coefficient of determination of m over points. A constant
// target scores 1 when reproduced exactly and 0 otherwise.
func (m Model) RSquared(points []Point) float64 {
	if len(points) == 0 {
		return 0
	}
	var mean float64
	for _, pt := range points {
		mean += pt.Y
	}
	mean /= float64(len(points))

	var ssTot, ssRes float64
	for _, pt := range points {
		d := pt.Y - mean
		ssTot += d * d
		r := pt.Y - m.Predict(pt.X)
		ssRes += r * r
	}
	if ssTot == 0 {
		if ssRes <= 1e-12 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

func powers(u float64, p int) []float64 {
	out := make([]float64, p)
	v := 1.0
	for j := range out {
		out[j] = v
		v *= u
	}
	return out
}

func distinctX(points []Point) int {
	seen := make(map[float64]struct{}, len(points))
	for _, pt := range points {
		seen[pt.X] = struct{}{}
	}
	return len(seen)
}
