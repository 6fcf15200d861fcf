package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestDeriveStatus(t *testing.T) {
	// A fully configured competition:
	//   registration 10:00–12:00, play 13:00–15:00
	full := Competition{
		RegStartAt:  ts("2026-06-01T10:00:00Z"),
		RegEndAt:    ts("2026-06-01T12:00:00Z"),
		CompStartAt: ts("2026-06-01T13:00:00Z"),
		CompEndAt:   ts("2026-06-01T15:00:00Z"),
		Status:      CompetitionStatusUpcoming,
	}

	tests := []struct {
		name string
		comp Competition
		now  string
		want CompetitionStatus
	}{
		{"before registration opens", full, "2026-06-01T09:00:00Z", CompetitionStatusUpcoming},
		{"registration just opened", full, "2026-06-01T10:00:00Z", CompetitionStatusRegistrationOpen},
		{"mid registration window", full, "2026-06-01T11:00:00Z", CompetitionStatusRegistrationOpen},
		{"registration just closed", full, "2026-06-01T12:30:00Z", CompetitionStatusRegistrationClosed},
		{"play started", full, "2026-06-01T13:00:00Z", CompetitionStatusOngoing},
		{"mid play", full, "2026-06-01T14:00:00Z", CompetitionStatusOngoing},
		{"play over", full, "2026-06-01T16:00:00Z", CompetitionStatusFinished},
		{
			name: "registration still open when play starts",
			comp: Competition{
				RegStartAt:  ts("2026-06-01T10:00:00Z"),
				RegEndAt:    ts("2026-06-01T14:00:00Z"),
				CompStartAt: ts("2026-06-01T13:00:00Z"),
				CompEndAt:   ts("2026-06-01T15:00:00Z"),
			},
			// Late registration: play has begun but the window hasn't
			// closed, so the competition counts as ongoing.
			now:  "2026-06-01T13:30:00Z",
			want: CompetitionStatusOngoing,
		},
		{
			name: "no dates at all keeps the stored status",
			comp: Competition{Status: CompetitionStatusRegistrationOpen},
			now:  "2026-06-01T13:30:00Z",
			want: CompetitionStatusRegistrationOpen,
		},
		{
			name: "registration closed with no play dates",
			comp: Competition{
				RegStartAt: ts("2026-06-01T10:00:00Z"),
				RegEndAt:   ts("2026-06-01T12:00:00Z"),
			},
			now:  "2026-06-01T12:30:00Z",
			want: CompetitionStatusRegistrationClosed,
		},
		{
			name: "published is sticky past every boundary",
			comp: Competition{
				RegStartAt:  ts("2026-06-01T10:00:00Z"),
				RegEndAt:    ts("2026-06-01T12:00:00Z"),
				CompStartAt: ts("2026-06-01T13:00:00Z"),
				CompEndAt:   ts("2026-06-01T15:00:00Z"),
				Status:      CompetitionStatusResultsPublished,
			},
			now:  "2026-06-01T11:00:00Z", // mid-registration by the dates
			want: CompetitionStatusResultsPublished,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now, err := time.Parse(time.RFC3339, tt.now)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, tt.comp.DeriveStatus(now))
		})
	}
}

func TestDeriveStatusDoesNotMutate(t *testing.T) {
	comp := Competition{
		RegStartAt: ts("2026-06-01T10:00:00Z"),
		RegEndAt:   ts("2026-06-01T12:00:00Z"),
		Status:     CompetitionStatusUpcoming,
	}
	_ = comp.DeriveStatus(*ts("2026-06-01T11:00:00Z"))
	assert.Equal(t, CompetitionStatusUpcoming, comp.Status)
}
