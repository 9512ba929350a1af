package starforce

import "errors"

var (
	// ErrInvalidArgument reports a caller input outside its contract
	// (end <= start, item level out of range, unknown metric, percentile outside [0,1]).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRuleset reports a ruleset that cannot drive a simulation:
	// missing rows, probabilities that do not sum to 1, negative costs.
	ErrRuleset = errors.New("ruleset contract violation")
)
