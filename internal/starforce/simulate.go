package starforce

import (
	"context"
	"fmt"
	"time"
)

// Request is one simulation job.
type Request struct {
	Start     int
	End       int
	ItemLevel int
	Trials    int
	Parallel  bool
}

// Validate checks the caller contract before any trial runs.
func (q Request) Validate() error {
	if q.End <= q.Start {
		return fmt.Errorf("%w: end value must be greater than the starting value, received start=%d, end=%d",
			ErrInvalidArgument, q.Start, q.End)
	}
	if q.Start < 0 {
		return fmt.Errorf("%w: start must be >= 0, received %d", ErrInvalidArgument, q.Start)
	}
	if q.ItemLevel < MinItemLevel || q.ItemLevel > MaxItemLevel {
		return fmt.Errorf("%w: item level must be in [%d, %d], received %d",
			ErrInvalidArgument, MinItemLevel, MaxItemLevel, q.ItemLevel)
	}
	if q.Trials < 1 {
		return fmt.Errorf("%w: trials must be >= 1, received %d", ErrInvalidArgument, q.Trials)
	}
	return nil
}

// Simulate runs req.Trials walks under rs and collects them into a ResultSet.
// Arguments and the ruleset are fully checked first; on error no trial runs.
func Simulate(ctx context.Context, rs *Ruleset, req Request, runner Runner, onProgress ProgressFunc) (*ResultSet, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if rs == nil {
		return nil, fmt.Errorf("%w: no ruleset", ErrRuleset)
	}
	if req.End > rs.MaxLevel() {
		return nil, fmt.Errorf("%w: end %d exceeds the ruleset maximum %d", ErrInvalidArgument, req.End, rs.MaxLevel())
	}
	if err := rs.Validate(req.Start, req.End, req.ItemLevel); err != nil {
		return nil, err
	}
	table, err := rs.Compile(req.ItemLevel)
	if err != nil {
		return nil, err
	}

	results, err := runner.Run(ctx, table, req.Start, req.End, req.Trials, req.Parallel, onProgress)
	if err != nil {
		return nil, err
	}
	return NewResultSet(Meta{
		Start:     req.Start,
		End:       req.End,
		ItemLevel: req.ItemLevel,
		Ruleset:   rs.Name,
		Seed:      runner.Seed,
		CreatedAt: time.Now().UTC(),
	}, results), nil
}
