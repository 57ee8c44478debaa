package parallax

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ParallelFor executes f once per index of the range policy and returns
// after all indices have completed. Indices run in backend-chosen chunks
// with no ordering guarantee and no cross-index synchronization.
func ParallelFor(p RangePolicy, f func(i int)) error {
	return parallelForRange(p, f)
}

// ParallelForAsync submits the range dispatch onto a stream and returns
// a completion token. Results are not guaranteed visible until the token
// is waited on or the stream is fenced.
func ParallelForAsync(p RangePolicy, f func(i int), s *Stream) *Token {
	if s == nil {
		s = defaultStream
	}
	return s.Submit(func() {
		// Range decomposition cannot fail after policy construction.
		_ = parallelForRange(p, f)
	})
}

func parallelForRange(p RangePolicy, f func(i int)) error {
	n := p.End - p.Begin
	if n == 0 {
		return nil
	}

	workers := Limits().Concurrency
	chunk := p.chunk
	if chunks := (n + chunk - 1) / chunk; chunks < workers {
		workers = chunks
	}
	if workers <= 1 {
		for i := p.Begin; i < p.End; i++ {
			f(i)
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for start := p.Begin; start < p.End; start += chunk {
		start := start
		stop := start + chunk
		if stop > p.End {
			stop = p.End
		}
		g.Go(func() error {
			for i := start; i < stop; i++ {
				f(i)
			}
			return nil
		})
	}
	return g.Wait()
}

// ParallelForTeams executes f once per team member for every team of the
// league. Every member of a team runs the functor body (the collective
// SPMD model); TeamThreadRange and ThreadVectorRange on the member
// subdivide inner work. The call returns after every team has completed,
// including all nested dispatches.
func ParallelForTeams(p TeamPolicy, f func(t *TeamMember)) error {
	if err := p.validateForDispatch(); err != nil {
		return err
	}
	teamSize := p.resolveTeamSize()
	if p.league == 0 {
		return nil
	}

	// Teams run concurrently up to the worker budget, but a team's
	// members must all be live at once for its barrier to make
	// progress, so the limit applies at team granularity.
	maxTeams := Limits().Concurrency / teamSize
	if maxTeams < 1 {
		maxTeams = 1
	}

	var g errgroup.Group
	g.SetLimit(maxTeams)
	for lr := 0; lr < p.league; lr++ {
		lr := lr
		g.Go(func() error {
			return runTeam(p, lr, teamSize, f)
		})
	}
	return g.Wait()
}

// ParallelForTeamsAsync submits the team dispatch onto a stream. Policy
// violations are reported synchronously; a failure inside the dispatch,
// such as a scratch allocation error, is carried on the token and
// available from Err once the token completes.
func ParallelForTeamsAsync(p TeamPolicy, f func(t *TeamMember), s *Stream) (*Token, error) {
	if err := p.validateForDispatch(); err != nil {
		return nil, err
	}
	if s == nil {
		s = defaultStream
	}
	return s.SubmitErr(func() error {
		return ParallelForTeams(p, f)
	}), nil
}

// runTeam executes one team: teamSize member goroutines sharing a
// barrier and a scratch arena. Scratch is valid only for this
// invocation; it is cleared before the members start so one team's
// writes never leak into another's.
func runTeam(p TeamPolicy, leagueRank, teamSize int, f func(t *TeamMember)) error {
	var scratch []byte
	var block *allocation
	if p.scratch > 0 {
		var err error
		block, err = Scratch.Allocate(p.scratch)
		if err != nil {
			return NewBackendError("ParallelForTeams",
				fmt.Sprintf("scratch allocation of %d bytes failed for team %d", p.scratch, leagueRank), err)
		}
		defer func() { _ = Scratch.Deallocate(block) }()
		scratch = block.Bytes()[:p.scratch]
		clear(scratch)
	}

	bar := newBarrier(teamSize)
	members := make([]TeamMember, teamSize)

	var g errgroup.Group
	for tr := 0; tr < teamSize; tr++ {
		m := &members[tr]
		*m = TeamMember{
			leagueRank: leagueRank,
			leagueSize: p.league,
			teamRank:   tr,
			teamSize:   teamSize,
			vectorLen:  p.vectorLen,
			barrier:    bar,
			scratch:    scratch,
		}
		g.Go(func() error {
			f(m)
			return nil
		})
	}
	return g.Wait()
}

// partitionRange assigns member rank its contiguous batch of [0, n):
// batches are ceil(n/members) long and the last is clamped to n. The
// assignment is deterministic for a given (n, members) pair, so repeated
// calls distribute identically.
func partitionRange(n, members, rank int) (start, stop int) {
	if members <= 0 || n <= 0 {
		return 0, 0
	}
	per := (n + members - 1) / members
	start = rank * per
	if start > n {
		start = n
	}
	stop = start + per
	if stop > n {
		stop = n
	}
	return start, stop
}
