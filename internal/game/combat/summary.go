package combat

// Summary condenses an outcome set into the figures a player usually asks for.
type Summary struct {
	// AttackerDies is the probability the attacker ends the round at 0 HP.
	AttackerDies float64 `json:"attacker_dies"`
	// DefenderDies is the probability the defender ends the round at 0 HP.
	DefenderDies float64 `json:"defender_dies"`
	// BothSurvive is the probability neither side is at 0 HP.
	BothSurvive float64 `json:"both_survive"`
	// ExpectedAtkHP is the mean attacker HP after the round.
	ExpectedAtkHP float64 `json:"expected_atk_hp"`
	// ExpectedDefHP is the mean defender HP after the round.
	ExpectedDefHP float64 `json:"expected_def_hp"`
	// TotalProb is the summed probability of the outcomes, 1 for a full round.
	TotalProb float64 `json:"total_prob"`
}

// Summarize computes the Summary of outcomes.
//
// Postcondition: AttackerDies + DefenderDies + BothSurvive == TotalProb. A dead
// unit cannot strike, so both sides sit at 0 only when the round started that
// way; such states count toward AttackerDies.
func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		s.TotalProb += o.Prob
		s.ExpectedAtkHP += o.Prob * float64(o.AtkHP)
		s.ExpectedDefHP += o.Prob * float64(o.DefHP)
		switch {
		case o.AtkHP == 0:
			s.AttackerDies += o.Prob
		case o.DefHP == 0:
			s.DefenderDies += o.Prob
		default:
			s.BothSurvive += o.Prob
		}
	}
	return s
}
