package decomp

import (
	"math"
	"slices"
)

// UserVotes is the sentinel vote count marking a user-supplied block-number
// candidate. Accumulated heuristic votes are capped at this value and never
// sum past it.
const UserVotes = math.MaxInt32

// BlockCandidate is one suggested block count with its accumulated votes.
type BlockCandidate struct {
	Value int
	Votes int
}

// AddCandidateNBlocks records a vote for a block-number candidate. Values of
// one or less are ignored. Repeated insertions of the same value accumulate
// votes, saturating at [UserVotes].
func (m *Matrix) AddCandidateNBlocks(value, votes int) {
	if value <= 1 {
		return
	}
	for i := range m.candidates {
		if m.candidates[i].Value == value {
			if m.candidates[i].Votes >= UserVotes-votes {
				m.candidates[i].Votes = UserVotes
			} else {
				m.candidates[i].Votes += votes
			}
			return
		}
	}
	m.candidates = append(m.candidates, BlockCandidate{Value: value, Votes: votes})
}

// BlockCandidates returns the candidates sorted by votes descending, value
// ascending among equal votes. User-supplied candidates sort first.
func (m *Matrix) BlockCandidates() []BlockCandidate {
	out := slices.Clone(m.candidates)
	slices.SortStableFunc(out, func(a, b BlockCandidate) int {
		if a.Votes != b.Votes {
			return b.Votes - a.Votes
		}
		return a.Value - b.Value
	})
	return out
}
