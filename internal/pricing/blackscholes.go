package pricing

import "math"

// Black-Scholes-Merton closed forms. All functions take the spot price S,
// strike K, time to expiry T in years, risk-free rate r, annualized
// volatility sigma and continuous dividend yield q.
//
// Degenerate inputs (T<=0, sigma<=0, S<=0, K<=0) never produce an error:
// prices collapse to intrinsic value, delta to the moneyness indicator and
// every other sensitivity to 0. Path repricing at the expiry boundary relies
// on exactly this behavior.

// D1 returns the d1 parameter, or 0 for degenerate inputs.
func D1(S, K, T, r, sigma, q float64) float64 {
	if T <= 0 || sigma <= 0 || S <= 0 || K <= 0 {
		return 0
	}
	return (math.Log(S/K) + (r-q+0.5*sigma*sigma)*T) / (sigma * math.Sqrt(T))
}

// D2 returns d1 - sigma*sqrt(T), or 0 for degenerate inputs.
func D2(S, K, T, r, sigma, q float64) float64 {
	if T <= 0 || sigma <= 0 {
		return 0
	}
	return D1(S, K, T, r, sigma, q) - sigma*math.Sqrt(T)
}

// CallPrice returns the BSM call price; at or past expiry the intrinsic
// value max(0, S-K).
func CallPrice(S, K, T, r, sigma, q float64) float64 {
	if T <= 0 {
		return math.Max(0, S-K)
	}
	d1 := D1(S, K, T, r, sigma, q)
	d2 := D2(S, K, T, r, sigma, q)
	price := S*math.Exp(-q*T)*normalCDF(d1) - K*math.Exp(-r*T)*normalCDF(d2)
	return math.Max(0, price)
}

// PutPrice returns the BSM put price; at or past expiry the intrinsic value
// max(0, K-S).
func PutPrice(S, K, T, r, sigma, q float64) float64 {
	if T <= 0 {
		return math.Max(0, K-S)
	}
	d1 := D1(S, K, T, r, sigma, q)
	d2 := D2(S, K, T, r, sigma, q)
	price := K*math.Exp(-r*T)*normalCDF(-d2) - S*math.Exp(-q*T)*normalCDF(-d1)
	return math.Max(0, price)
}

// Delta returns the option delta. At expiry it collapses to the moneyness
// indicator: 1/0 for calls, -1/0 for puts.
func Delta(S, K, T, r, sigma float64, isCall bool, q float64) float64 {
	if T <= 0 {
		if isCall {
			if S > K {
				return 1
			}
			return 0
		}
		if S < K {
			return -1
		}
		return 0
	}
	d1 := D1(S, K, T, r, sigma, q)
	discount := math.Exp(-q * T)
	if isCall {
		return normalCDF(d1) * discount
	}
	return (normalCDF(d1) - 1) * discount
}

// Gamma is identical for calls and puts; 0 for degenerate inputs.
func Gamma(S, K, T, r, sigma, q float64) float64 {
	if T <= 0 || sigma <= 0 || S <= 0 {
		return 0
	}
	d1 := D1(S, K, T, r, sigma, q)
	return normalPDF(d1) * math.Exp(-q*T) / (S * sigma * math.Sqrt(T))
}

// Theta returns the daily time decay (annualized theta divided by 365,
// calendar-day convention).
func Theta(S, K, T, r, sigma float64, isCall bool, q float64) float64 {
	if T <= 0 {
		return 0
	}
	d1 := D1(S, K, T, r, sigma, q)
	d2 := D2(S, K, T, r, sigma, q)
	sqrtT := math.Sqrt(T)
	discQ := math.Exp(-q * T)
	discR := math.Exp(-r * T)

	term1 := -(S * sigma * discQ * normalPDF(d1)) / (2 * sqrtT)
	var term2, term3 float64
	if isCall {
		term2 = q * S * discQ * normalCDF(d1)
		term3 = -r * K * discR * normalCDF(d2)
	} else {
		term2 = -q * S * discQ * normalCDF(-d1)
		term3 = r * K * discR * normalCDF(-d2)
	}

	return (term1 + term2 + term3) / 365
}

// Vega returns the sensitivity per 1 percentage-point change in volatility.
func Vega(S, K, T, r, sigma, q float64) float64 {
	if T <= 0 || S <= 0 {
		return 0
	}
	d1 := D1(S, K, T, r, sigma, q)
	return S * math.Sqrt(T) * normalPDF(d1) * math.Exp(-q*T) * 0.01
}

// Rho returns the sensitivity per 1 percentage-point change in the
// risk-free rate.
func Rho(S, K, T, r, sigma float64, isCall bool, q float64) float64 {
	if T <= 0 {
		return 0
	}
	d2 := D2(S, K, T, r, sigma, q)
	discount := math.Exp(-r * T)
	if isCall {
		return K * T * discount * normalCDF(d2) * 0.01
	}
	return -K * T * discount * normalCDF(-d2) * 0.01
}

// Price returns the call or put price depending on the flag.
func Price(S, K, T, r, sigma float64, isCall bool, q float64) float64 {
	if isCall {
		return CallPrice(S, K, T, r, sigma, q)
	}
	return PutPrice(S, K, T, r, sigma, q)
}

// AllGreeks computes the five per-share Greeks, scales them by
// positionSize*multiplier and fills in the dollar-denominated exposures.
func AllGreeks(S, K, T, r, sigma float64, isCall bool, q, positionSize float64, multiplier int) Greeks {
	delta := Delta(S, K, T, r, sigma, isCall, q)
	gamma := Gamma(S, K, T, r, sigma, q)
	theta := Theta(S, K, T, r, sigma, isCall, q)
	vega := Vega(S, K, T, r, sigma, q)
	rho := Rho(S, K, T, r, sigma, isCall, q)

	scale := positionSize * float64(multiplier)

	return Greeks{
		Delta: delta * scale,
		Gamma: gamma * scale,
		Theta: theta * scale,
		Vega:  vega * scale,
		Rho:   rho * scale,

		DeltaDollars: delta * scale * S,
		GammaDollars: gamma * scale * S * 0.01, // per 1% underlying move
		ThetaDollars: theta * scale,
		VegaDollars:  vega * scale,
	}
}

// ImpliedVolatility solves for the volatility matching marketPrice via
// Newton-Raphson, seeded with the Brenner-Subrahmanyam approximation and
// clamped to [0.01, 5.0] each step. On non-convergence the last estimate is
// returned; callers should treat values at the clamp boundary as suspect.
func ImpliedVolatility(marketPrice, S, K, T, r float64, isCall bool, q, precision float64, maxIterations int) float64 {
	if T <= 0 || marketPrice <= 0 || S <= 0 {
		return 0
	}
	if precision <= 0 {
		precision = 1e-4
	}
	if maxIterations <= 0 {
		maxIterations = 100
	}

	iv := math.Sqrt(2*math.Pi/T) * marketPrice / S
	iv = clampVol(iv)

	for i := 0; i < maxIterations; i++ {
		price := Price(S, K, T, r, iv, isCall, q)
		diff := price - marketPrice
		if math.Abs(diff) < precision {
			return iv
		}

		// Per-unit vega; the exported Vega is scaled to 1%.
		vega := Vega(S, K, T, r, iv, q) * 100
		if math.Abs(vega) < 1e-10 {
			break
		}

		iv = clampVol(iv - diff/vega)
	}

	return iv
}

func clampVol(v float64) float64 {
	return math.Max(0.01, math.Min(5.0, v))
}

// normalCDF is the standard normal cumulative distribution function.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

// normalPDF is the standard normal probability density function.
func normalPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
