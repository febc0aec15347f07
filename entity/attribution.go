package entity

// Attribution reasons, recorded verbatim on every join event.
const (
	ReasonNoInviteDelta = "no_invite_delta"
	ReasonSingleDelta   = "single_delta"
	ReasonMultiDelta    = "multi_delta"
)

// Attribution is the resolver's verdict on which invite a joining member
// used. Confidence is a heuristic weight, not a guarantee; consumers must
// never treat it as a boolean. Zero InviteCode/InviterID means no
// attribution.
type Attribution struct {
	InviteCode string  `json:"invite_code,omitempty"`
	InviterID  int64   `json:"inviter_id,omitempty"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

func (a Attribution) Attributed() bool {
	return a.InviteCode != "" || a.InviterID != 0
}
