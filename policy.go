package parallax

import (
	"fmt"
	"runtime"
)

// AutoTeamSize asks the backend to choose the team size.
const AutoTeamSize = -1

// BackendLimits describes the capacities of the active execution
// backend. Policy construction and dispatch submission reject requests
// exceeding them.
type BackendLimits struct {
	Concurrency    int // worker goroutines available to dispatch
	MaxTeamSize    int // members per team
	MaxLeagueSize  int // teams per dispatch, 0 means unlimited
	ScratchPerTeam int // bytes of team scratch per dispatch
}

var backendLimits BackendLimits

func init() {
	backendLimits = BackendLimits{
		Concurrency:    runtime.NumCPU(),
		MaxTeamSize:    MaxTeamSize,
		MaxLeagueSize:  0,
		ScratchPerTeam: ScratchPerTeam,
	}
}

// Limits returns the active backend's capacities.
func Limits() BackendLimits {
	return backendLimits
}

// RangePolicy describes a flat half-open index range [Begin, End).
// Dispatch partitions it into chunks with no ordering guarantee between
// indices and no implicit cross-index synchronization.
type RangePolicy struct {
	Begin, End int
	chunk      int
}

// NewRangePolicy builds a flat range policy over [begin, end).
func NewRangePolicy(begin, end int) (RangePolicy, error) {
	if end < begin {
		return RangePolicy{}, NewConfigurationError("NewRangePolicy",
			"end precedes begin", fmt.Sprintf("[%d,%d)", begin, end))
	}
	return RangePolicy{Begin: begin, End: end, chunk: DefaultChunkSize}, nil
}

// WithChunkSize overrides the decomposition chunk size. Non-positive
// values restore the default.
func (p RangePolicy) WithChunkSize(n int) RangePolicy {
	if n <= 0 {
		n = DefaultChunkSize
	}
	p.chunk = n
	return p
}

// ChunkSize returns the decomposition chunk size.
func (p RangePolicy) ChunkSize() int { return p.chunk }

// TeamPolicy describes a two-level hierarchy of league teams, each with
// teamSize members, plus an optional per-team scratch budget and a
// vector length for the innermost level.
type TeamPolicy struct {
	league    int
	teamSize  int
	vectorLen int
	scratch   int
}

// NewTeamPolicy builds a hierarchical policy of league teams with
// teamSize members each (or AutoTeamSize to let the backend pick).
// Requests exceeding the backend's limits fail here, not at dispatch.
func NewTeamPolicy(league, teamSize int) (TeamPolicy, error) {
	lim := Limits()
	if league < 0 {
		return TeamPolicy{}, NewConfigurationError("NewTeamPolicy",
			"negative league size", fmt.Sprintf("league=%d", league))
	}
	if lim.MaxLeagueSize > 0 && league > lim.MaxLeagueSize {
		return TeamPolicy{}, NewConfigurationError("NewTeamPolicy",
			"league size exceeds backend limit",
			fmt.Sprintf("league=%d, limit=%d", league, lim.MaxLeagueSize))
	}
	if teamSize != AutoTeamSize {
		if teamSize < 1 {
			return TeamPolicy{}, NewConfigurationError("NewTeamPolicy",
				"team size must be positive or AutoTeamSize",
				fmt.Sprintf("teamSize=%d", teamSize))
		}
		if teamSize > lim.MaxTeamSize {
			return TeamPolicy{}, NewConfigurationError("NewTeamPolicy",
				"team size exceeds backend limit",
				fmt.Sprintf("teamSize=%d, limit=%d", teamSize, lim.MaxTeamSize))
		}
	}
	return TeamPolicy{
		league:    league,
		teamSize:  teamSize,
		vectorLen: VectorWidth(),
	}, nil
}

// WithScratch attaches a per-team scratch budget in bytes. The budget is
// validated against the backend's scratch capacity at dispatch
// submission.
func (p TeamPolicy) WithScratch(bytes int) TeamPolicy {
	p.scratch = bytes
	return p
}

// WithVectorLength overrides the vector length of the innermost level.
func (p TeamPolicy) WithVectorLength(n int) TeamPolicy {
	if n < 1 {
		n = 1
	}
	p.vectorLen = n
	return p
}

// LeagueSize returns the number of teams.
func (p TeamPolicy) LeagueSize() int { return p.league }

// TeamSize returns the requested members per team, or AutoTeamSize.
func (p TeamPolicy) TeamSize() int { return p.teamSize }

// ScratchSize returns the per-team scratch budget in bytes.
func (p TeamPolicy) ScratchSize() int { return p.scratch }

// VectorLength returns the vector length of the innermost level.
func (p TeamPolicy) VectorLength() int { return p.vectorLen }

// resolveTeamSize maps AutoTeamSize to a backend-chosen value. The
// choice is deterministic for a given machine.
func (p TeamPolicy) resolveTeamSize() int {
	if p.teamSize != AutoTeamSize {
		return p.teamSize
	}
	size := DefaultTeamSize
	if lim := Limits(); size > lim.Concurrency {
		size = lim.Concurrency
	}
	if size < 1 {
		size = 1
	}
	return size
}

// validateForDispatch re-checks the budgets a dispatch submission must
// honor. Scratch overruns are reported here rather than truncated.
func (p TeamPolicy) validateForDispatch() error {
	lim := Limits()
	if p.scratch > lim.ScratchPerTeam {
		return NewConfigurationError("ParallelForTeams",
			"scratch budget exceeds backend capacity",
			fmt.Sprintf("requested %d bytes per team, capacity %d", p.scratch, lim.ScratchPerTeam))
	}
	if p.scratch < 0 {
		return NewConfigurationError("ParallelForTeams",
			"negative scratch budget", fmt.Sprintf("%d bytes", p.scratch))
	}
	return nil
}
