package starforce

// Outcome is the class of one attempt.
type Outcome uint8

const (
	Success Outcome = iota
	Maintain
	Boom
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Maintain:
		return "maintain"
	case Boom:
		return "boom"
	}
	return "unknown"
}

// OutcomeProbabilities is the probability triple of one level.
type OutcomeProbabilities struct {
	Success  float64
	Maintain float64
	Boom     float64
}

// Classify maps a uniform draw u in [0,1) to an outcome:
// u < pSuccess => Success, u < pSuccess+pMaintain => Maintain, else Boom.
// Rows may sum to slightly under 1; a draw past the sum on a row that
// cannot boom falls to the last outcome with mass.
func (p OutcomeProbabilities) Classify(u float64) Outcome {
	if u < p.Success {
		return Success
	}
	if u < p.Success+p.Maintain {
		return Maintain
	}
	switch {
	case p.Boom > 0:
		return Boom
	case p.Maintain > 0:
		return Maintain
	}
	return Success
}
