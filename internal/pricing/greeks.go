package pricing

// Greeks holds the five sensitivities in native units plus their
// dollar-denominated counterparts: DeltaDollars is the directional exposure,
// GammaDollars the exposure per 1% underlying move, ThetaDollars the decay
// per calendar day and VegaDollars the exposure per 1 percentage-point IV
// change.
type Greeks struct {
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`

	DeltaDollars float64 `json:"delta_dollars"`
	GammaDollars float64 `json:"gamma_dollars"`
	ThetaDollars float64 `json:"theta_dollars"`
	VegaDollars  float64 `json:"vega_dollars"`
}

// Add returns the component-wise sum of g and other.
func (g Greeks) Add(other Greeks) Greeks {
	return Greeks{
		Delta: g.Delta + other.Delta,
		Gamma: g.Gamma + other.Gamma,
		Theta: g.Theta + other.Theta,
		Vega:  g.Vega + other.Vega,
		Rho:   g.Rho + other.Rho,

		DeltaDollars: g.DeltaDollars + other.DeltaDollars,
		GammaDollars: g.GammaDollars + other.GammaDollars,
		ThetaDollars: g.ThetaDollars + other.ThetaDollars,
		VegaDollars:  g.VegaDollars + other.VegaDollars,
	}
}

// Scale returns g multiplied component-wise by the scalar.
func (g Greeks) Scale(scalar float64) Greeks {
	return Greeks{
		Delta: g.Delta * scalar,
		Gamma: g.Gamma * scalar,
		Theta: g.Theta * scalar,
		Vega:  g.Vega * scalar,
		Rho:   g.Rho * scalar,

		DeltaDollars: g.DeltaDollars * scalar,
		GammaDollars: g.GammaDollars * scalar,
		ThetaDollars: g.ThetaDollars * scalar,
		VegaDollars:  g.VegaDollars * scalar,
	}
}
