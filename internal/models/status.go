package models

import "time"

// DeriveStatus computes the competition's current status from its configured
// time boundaries and the stored status. It is a pure function of the stored
// fields and now — callers decide whether to persist the result.
//
// Rules, evaluated in order:
//  1. A stored results_published status wins unconditionally. It is the one
//     terminal state, set by the organizer's publish action, and no value of
//     now can recompute it away.
//  2. Before the registration window opens: upcoming.
//  3. After the registration window closes: finished once play has ended,
//     ongoing once play has started, otherwise registration_closed.
//  4. Inside the registration window: ongoing once play has started
//     (windows may overlap), otherwise registration_open.
//  5. With no boundaries configured the stored status is returned unchanged.
//
// Boundary ordering is not validated when organizers write these fields, so
// inconsistent windows (reg_end before reg_start, play ending before it
// starts) can produce non-intuitive results. The branch order above is
// load-bearing: it must not be rearranged, or previously derived statuses
// would flap for such competitions.
func (c *Competition) DeriveStatus(now time.Time) CompetitionStatus {
	if c.Status == CompetitionStatusResultsPublished {
		return CompetitionStatusResultsPublished
	}

	switch {
	case c.RegStartAt != nil && now.Before(*c.RegStartAt):
		return CompetitionStatusUpcoming

	case c.RegEndAt != nil && now.After(*c.RegEndAt):
		switch {
		case c.CompEndAt != nil && now.After(*c.CompEndAt):
			return CompetitionStatusFinished
		case c.CompStartAt != nil && !now.Before(*c.CompStartAt):
			return CompetitionStatusOngoing
		default:
			return CompetitionStatusRegistrationClosed
		}

	case c.RegStartAt != nil && !now.Before(*c.RegStartAt):
		if c.CompStartAt != nil && !now.Before(*c.CompStartAt) {
			return CompetitionStatusOngoing
		}
		return CompetitionStatusRegistrationOpen

	default:
		// No usable boundaries — keep whatever is stored.
		return c.Status
	}
}
