package tracker

import (
	"sort"

	"inviteguard/entity"
)

// Attribution confidence constants. The platform never reports which invite
// a join used, so these are heuristic weights over use-counter deltas.
const (
	confidenceNoDelta     = 0.2
	confidenceSingleDelta = 0.96
	confidenceMultiBase   = 0.75
	confidenceMultiStep   = 0.08
	confidenceMultiFloor  = 0.45
)

type candidate struct {
	code      string
	delta     int
	inviterID int64
}

// Resolve diffs the previous snapshot against the live one and picks the
// invite whose use counter grew the most. Ties break by invite code
// ascending; a deterministic rule is required because the pick is
// user-observable through the emitted reason and confidence.
func Resolve(previous, current entity.InviteSnapshot) entity.Attribution {
	var increased []candidate
	for code, now := range current {
		delta := now.Uses - previous[code].Uses
		if delta > 0 {
			increased = append(increased, candidate{
				code:      code,
				delta:     delta,
				inviterID: now.InviterID,
			})
		}
	}

	if len(increased) == 0 {
		return entity.Attribution{
			Confidence: confidenceNoDelta,
			Reason:     entity.ReasonNoInviteDelta,
		}
	}

	sort.Slice(increased, func(i, j int) bool {
		if increased[i].delta != increased[j].delta {
			return increased[i].delta > increased[j].delta
		}
		return increased[i].code < increased[j].code
	})
	winner := increased[0]

	if len(increased) == 1 {
		return entity.Attribution{
			InviteCode: winner.code,
			InviterID:  winner.inviterID,
			Confidence: confidenceSingleDelta,
			Reason:     entity.ReasonSingleDelta,
		}
	}

	confidence := confidenceMultiBase - float64(len(increased)-1)*confidenceMultiStep
	if confidence < confidenceMultiFloor {
		confidence = confidenceMultiFloor
	}
	return entity.Attribution{
		InviteCode: winner.code,
		InviterID:  winner.inviterID,
		Confidence: confidence,
		Reason:     entity.ReasonMultiDelta,
	}
}
