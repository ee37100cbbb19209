// Package rating updates doubles ratings from match outcomes with the two-team
// TrueSkill model.
//
// Each player's performance is drawn from N(mu, sigma^2 + beta^2) and a team's
// performance is the sum of its players'. Conditioning the winning team's
// performance to exceed the losing team's gives a truncated Gaussian whose
// first two moments are matched in closed form:
//   - c: the total standard deviation of the performance difference.
//   - t: the mean performance difference of winner over loser, in units of c.
//   - v: the additive correction of the mean, pdf(t)/cdf(t).
//   - w: the multiplicative correction of the variance, v*(v+t).
//
// There are no draws, so the draw margin is zero.
package rating

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Below this cdf value v and w are replaced by their asymptotes.
const minCDF = 2.222758749e-162

// DefaultEnv returns the usual TrueSkill constants: mu=25, sigma=mu/3, beta=sigma/2 and
// no dynamics factor.
func DefaultEnv() Env {
	sigma := 25.0 / 3.0
	return Env{
		Mu:    25,
		Sigma: sigma,
		Beta:  sigma / 2,
		Tau:   0,
	}
}

// Validate checks the environment constants.
func (e Env) Validate() error {
	switch {
	case !finite(e.Mu):
		return &ValidationError{Field: "env.mu", Err: ErrInvalidEnv}
	case !finite(e.Sigma) || e.Sigma <= 0:
		return &ValidationError{Field: "env.sigma", Err: ErrInvalidEnv}
	case !finite(e.Beta) || e.Beta <= 0:
		return &ValidationError{Field: "env.beta", Err: ErrInvalidEnv}
	case !finite(e.Tau) || e.Tau < 0:
		return &ValidationError{Field: "env.tau", Err: ErrInvalidEnv}
	}
	return nil
}

// NewRating returns the prior rating of a new player.
func (e Env) NewRating() Rating {
	return Rating{Mu: e.Mu, Sigma: e.Sigma}
}

// Update rates one doubles match with the default environment.
func Update(team1, team2 Team, winner Winner) (Result, error) {
	return DefaultEnv().Update(team1, team2, winner)
}

// Update returns the posterior ratings of all four players after winner beat the other
// team. Output positions mirror input positions.
func (e Env) Update(team1, team2 Team, winner Winner) (Result, error) {
	if err := validateTeam("team1", team1); err != nil {
		return Result{}, err
	}
	if err := validateTeam("team2", team2); err != nil {
		return Result{}, err
	}

	if !winner.Valid() {
		return Result{}, &ValidationError{Field: "winner", Err: ErrInvalidWinner}
	}
	won, lost := team1, team2
	if winner == Team2 {
		won, lost = team2, team1
	}

	tau2 := e.Tau * e.Tau
	c2 := 4 * e.Beta * e.Beta
	for _, team := range [2]Team{won, lost} {
		for _, r := range team {
			c2 += r.Sigma*r.Sigma + tau2
		}
	}
	c := math.Sqrt(c2)

	t := (teamMu(won) - teamMu(lost)) / c
	v, w := vWin(t), wWin(t)

	adjust := func(team Team, sign float64) Team {
		var out Team
		for i, r := range team {
			s2 := r.Sigma*r.Sigma + tau2
			out[i] = Rating{
				Mu:    r.Mu + sign*(s2/c)*v,
				Sigma: math.Sqrt(s2 * (1 - (s2/c2)*w)),
			}
		}
		return out
	}

	newWon, newLost := adjust(won, 1), adjust(lost, -1)
	if winner == Team1 {
		return Result{Team1: newWon, Team2: newLost}, nil
	}
	return Result{Team1: newLost, Team2: newWon}, nil
}

// WinProbability returns the probability that team1 beats team2.
func (e Env) WinProbability(team1, team2 Team) float64 {
	c2 := 4 * e.Beta * e.Beta
	for _, team := range [2]Team{team1, team2} {
		for _, r := range team {
			c2 += r.Sigma*r.Sigma + e.Tau*e.Tau
		}
	}
	return distuv.UnitNormal.CDF((teamMu(team1) - teamMu(team2)) / math.Sqrt(c2))
}

func teamMu(t Team) float64 {
	return t[0].Mu + t[1].Mu
}

func vWin(t float64) float64 {
	denom := distuv.UnitNormal.CDF(t)
	if denom < minCDF {
		return -t
	}
	return distuv.UnitNormal.Prob(t) / denom
}

func wWin(t float64) float64 {
	denom := distuv.UnitNormal.CDF(t)
	if denom < minCDF {
		if t < 0 {
			return 1
		}
		return 0
	}
	v := vWin(t)
	return v * (v + t)
}

func validateTeam(name string, team Team) error {
	for i, r := range team {
		if !finite(r.Mu) {
			return &ValidationError{Field: name + indexSuffix(i) + ".mu", Err: ErrInvalidMu}
		}
		if !finite(r.Sigma) || r.Sigma <= 0 {
			return &ValidationError{Field: name + indexSuffix(i) + ".sigma", Err: ErrInvalidSigma}
		}
	}
	return nil
}

func indexSuffix(i int) string {
	if i == 0 {
		return "[0]"
	}
	return "[1]"
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
