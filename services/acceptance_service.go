package services

// Party identifies which side of a two-party record is acting.
type Party int

const (
	PartyCareRecipient Party = iota
	PartyCaregiver
)

// AcceptanceState is the dual-acceptance portion of a video call request:
// one vote flag per party plus the aggregate status.
type AcceptanceState struct {
	CareRecipientAccepted bool
	CaregiverAccepted     bool
	Status                string
}

// BothAccepted reports whether both parties have opted in.
func (s AcceptanceState) BothAccepted() bool {
	return s.CareRecipientAccepted && s.CaregiverAccepted
}

// MergeAcceptance folds one party's vote into the state and returns the
// result. A decline always wins: status becomes declined regardless of what
// the other party did. An accept records the actor's flag and promotes
// status to accepted only when both flags are set; it never writes a status
// back to pending, and neither declined nor completed regresses, so a
// finished request stays finished even if a party votes again afterwards.
func MergeAcceptance(state AcceptanceState, actor Party, accept bool) AcceptanceState {
	next := state
	if actor == PartyCareRecipient {
		next.CareRecipientAccepted = accept
	} else {
		next.CaregiverAccepted = accept
	}

	if !accept {
		if next.Status != "completed" {
			next.Status = "declined"
		}
		return next
	}
	if next.BothAccepted() && next.Status != "declined" && next.Status != "completed" {
		next.Status = "accepted"
	}
	return next
}

// ShouldCreateBooking reports whether an acceptance transition is a booking
// creation trigger: the caregiver's flag just flipped true, the care
// recipient's flag just flipped true while the caregiver was already in, the
// aggregate status just became accepted, or both flags are now set. The
// overlap between these conditions is deliberate; creation itself is
// idempotent, so firing twice is harmless while missing an edge is not.
func ShouldCreateBooking(before, after AcceptanceState) bool {
	if after.Status == "declined" || after.Status == "completed" {
		return false
	}
	caregiverJoined := after.CaregiverAccepted && !before.CaregiverAccepted
	recipientJoined := after.CareRecipientAccepted && !before.CareRecipientAccepted
	becameAccepted := after.Status == "accepted" && before.Status != "accepted"

	return caregiverJoined ||
		(recipientJoined && before.CaregiverAccepted) ||
		becameAccepted ||
		after.BothAccepted()
}
