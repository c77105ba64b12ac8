package forecast

import (
	"fmt"
	"math"

	"app/models"
	"app/utils"
)

// Fit fits an ordinary least-squares line to the trend series.
//
// x is the 1-based position of each point, not its calendar offset, so a
// gap between two sales days does not widen the axis. r² is 1 - SSres/SStot
// (0 for a flat series) clamped to [0, 1].
func Fit(trends []models.TrendPoint) (models.RegressionModel, error) {
	n := len(trends)
	if n < 2 {
		return models.RegressionModel{}, fmt.Errorf("%w: got %d", ErrDegenerateRegression, n)
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, p := range trends {
		if !isFinite(p.Value) {
			return models.RegressionModel{}, fmt.Errorf("%w: non-finite value %v on %s",
				ErrDegenerateRegression, p.Value, p.Date.Format(models.DateLayout))
		}
		x := float64(i + 1)
		sumX += x
		sumY += p.Value
		sumXY += x * p.Value
		sumX2 += x * x
	}

	nf := float64(n)
	slope := (nf*sumXY - sumX*sumY) / (nf*sumX2 - sumX*sumX)
	intercept := (sumY - slope*sumX) / nf

	model := models.RegressionModel{Slope: slope, Intercept: intercept}

	meanY := sumY / nf
	var ssTotal float64
	for _, p := range trends {
		d := p.Value - meanY
		ssTotal += d * d
	}
	ssResidual := SumSquaredResiduals(model, trends)
	if !isFinite(slope) || !isFinite(intercept) || !isFinite(ssResidual) {
		return models.RegressionModel{}, fmt.Errorf("%w: fit overflowed (slope %v, intercept %v, SSres %v)",
			ErrDegenerateRegression, slope, intercept, ssResidual)
	}

	if ssTotal > 0 {
		model.RSquared = utils.Clamp01(1 - ssResidual/ssTotal)
	}
	return model, nil
}

// SumSquaredResiduals sums (y - ŷ)² over the series at positions 1..n.
func SumSquaredResiduals(model models.RegressionModel, trends []models.TrendPoint) float64 {
	var ss float64
	for i, p := range trends {
		r := p.Value - model.Predict(float64(i+1))
		ss += r * r
	}
	return ss
}

// StandardError is sqrt(SSres / max(1, n-2)) over the fitted series.
func StandardError(model models.RegressionModel, trends []models.TrendPoint) float64 {
	dof := len(trends) - 2
	if dof < 1 {
		dof = 1
	}
	return math.Sqrt(SumSquaredResiduals(model, trends) / float64(dof))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
