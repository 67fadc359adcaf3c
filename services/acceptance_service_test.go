package services

import "testing"

func TestMergeAcceptanceSingleAccept(t *testing.T) {
	pending := AcceptanceState{Status: "pending"}

	after := MergeAcceptance(pending, PartyCareRecipient, true)
	if !after.CareRecipientAccepted || after.CaregiverAccepted {
		t.Errorf("expected only care recipient flag set, got %+v", after)
	}
	if after.Status != "pending" {
		t.Errorf("one-sided accept must not change status, got %q", after.Status)
	}

	after = MergeAcceptance(pending, PartyCaregiver, true)
	if !after.CaregiverAccepted || after.CareRecipientAccepted {
		t.Errorf("expected only caregiver flag set, got %+v", after)
	}
	if after.Status != "pending" {
		t.Errorf("one-sided accept must not change status, got %q", after.Status)
	}
}

func TestMergeAcceptanceBothAccept(t *testing.T) {
	state := AcceptanceState{CareRecipientAccepted: true, Status: "pending"}

	after := MergeAcceptance(state, PartyCaregiver, true)
	if !after.BothAccepted() {
		t.Fatalf("expected both flags set, got %+v", after)
	}
	if after.Status != "accepted" {
		t.Errorf("expected status accepted, got %q", after.Status)
	}
}

func TestMergeAcceptanceDeclineWins(t *testing.T) {
	cases := []struct {
		name  string
		state AcceptanceState
		actor Party
	}{
		{"decline on pending", AcceptanceState{Status: "pending"}, PartyCaregiver},
		{"decline after other accepted", AcceptanceState{CareRecipientAccepted: true, Status: "pending"}, PartyCaregiver},
		{"decline after mutual accept", AcceptanceState{CareRecipientAccepted: true, CaregiverAccepted: true, Status: "accepted"}, PartyCareRecipient},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			after := MergeAcceptance(tc.state, tc.actor, false)
			if after.Status != "declined" {
				t.Errorf("expected status declined, got %q", after.Status)
			}
		})
	}
}

func TestMergeAcceptanceDeclineIsFinal(t *testing.T) {
	// one party declined, then the other accepts
	declined := AcceptanceState{Status: "declined"}

	after := MergeAcceptance(declined, PartyCaregiver, true)
	if after.Status != "declined" {
		t.Errorf("accept after decline must not reopen the request, got status %q", after.Status)
	}
	if !after.CaregiverAccepted {
		t.Errorf("the accepting party's flag should still be recorded")
	}

	// even if both flags end up true, a declined status holds
	after = MergeAcceptance(AcceptanceState{CareRecipientAccepted: true, Status: "declined"}, PartyCaregiver, true)
	if after.Status != "declined" {
		t.Errorf("declined status must survive both flags becoming true, got %q", after.Status)
	}
}

func TestMergeAcceptanceCompletedIsFinal(t *testing.T) {
	completed := AcceptanceState{CareRecipientAccepted: true, CaregiverAccepted: true, Status: "completed"}

	after := MergeAcceptance(completed, PartyCaregiver, true)
	if after.Status != "completed" {
		t.Errorf("re-accept must not regress a completed request, got status %q", after.Status)
	}

	after = MergeAcceptance(completed, PartyCareRecipient, false)
	if after.Status != "completed" {
		t.Errorf("decline must not regress a completed request, got status %q", after.Status)
	}
	if after.CareRecipientAccepted {
		t.Errorf("the declining party's flag should still be recorded")
	}
}

func TestShouldCreateBooking(t *testing.T) {
	cases := []struct {
		name   string
		before AcceptanceState
		after  AcceptanceState
		want   bool
	}{
		{
			"caregiver flag just flipped",
			AcceptanceState{Status: "pending"},
			AcceptanceState{CaregiverAccepted: true, Status: "pending"},
			true,
		},
		{
			"recipient joins after caregiver",
			AcceptanceState{CaregiverAccepted: true, Status: "pending"},
			AcceptanceState{CareRecipientAccepted: true, CaregiverAccepted: true, Status: "accepted"},
			true,
		},
		{
			"recipient accepts first, caregiver silent",
			AcceptanceState{Status: "pending"},
			AcceptanceState{CareRecipientAccepted: true, Status: "pending"},
			false,
		},
		{
			"re-accept with both already set",
			AcceptanceState{CareRecipientAccepted: true, CaregiverAccepted: true, Status: "accepted"},
			AcceptanceState{CareRecipientAccepted: true, CaregiverAccepted: true, Status: "accepted"},
			true,
		},
		{
			"re-accept on completed never triggers",
			AcceptanceState{CareRecipientAccepted: true, CaregiverAccepted: true, Status: "completed"},
			AcceptanceState{CareRecipientAccepted: true, CaregiverAccepted: true, Status: "completed"},
			false,
		},
		{
			"declined never triggers",
			AcceptanceState{CareRecipientAccepted: true, Status: "pending"},
			AcceptanceState{CareRecipientAccepted: true, Status: "declined"},
			false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldCreateBooking(tc.before, tc.after); got != tc.want {
				t.Errorf("ShouldCreateBooking() = %v, want %v", got, tc.want)
			}
		})
	}
}
