// Package lineq provides the dense linear algebra needed for weighted
// least-squares curve fitting: an overdetermined solver and a numerical
// rank test. It is a thin facade over gonum's mat package, so that callers
// can detect rank deficiency and fall back to a lower-degree fit instead of
// solving a singular system.
package lineq

import (
	"errors"
	"fmt"
	"math"

	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"gonum.org/v1/gonum/mat"
)

// T traces to the equations tracer.
func T() tracing.Trace {
	return gtrace.EquationsTracer
}

// ErrRankDeficient indicates a system without a unique least-squares
// solution.
var ErrRankDeficient = errors.New("matrix system is rank deficient")

// Machine epsilon for float64.
const eps = 2.220446049250313e-16

// Rank returns the numerical rank of a, computed from its singular values.
// A singular value counts towards the rank if it exceeds
// max(m,n) * sigma_max * eps.
func Rank(a mat.Matrix) int {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDNone); !ok {
		T().Errorf("SVD factorization failed")
		return 0
	}
	values := svd.Values(nil)
	if len(values) == 0 {
		return 0
	}
	m, n := a.Dims()
	tol := float64(max(m, n)) * values[0] * eps
	rank := 0
	for _, sigma := range values {
		if sigma > tol {
			rank++
		}
	}
	return rank
}

// LeastSquares finds the x that minimizes the Euclidean norm of a*x - b,
// using a QR decomposition of a. The system may have multiple right-hand
// sides (columns of b). An ill-conditioned but solvable system is accepted
// and logged; a singular one yields ErrRankDeficient.
func LeastSquares(a, b *mat.Dense) (*mat.Dense, error) {
	ar, ac := a.Dims()
	br, _ := b.Dims()
	if ar != br {
		return nil, fmt.Errorf("dimension mismatch: a is %dx%d, b has %d rows", ar, ac, br)
	}
	var qr mat.QR
	qr.Factorize(a)
	x := &mat.Dense{}
	if err := qr.SolveTo(x, false, b); err != nil {
		cond, ok := err.(mat.Condition)
		if !ok || math.IsInf(float64(cond), 1) {
			return nil, fmt.Errorf("%w: %v", ErrRankDeficient, err)
		}
		T().Debugf("least-squares system is ill-conditioned: cond = %g", float64(cond))
		return x, nil
	}
	return x, nil
}
