// Package models defines the data structures (models) that map to database tables.
// GORM uses these structs to generate SQL queries and map database rows back to Go values.
// The struct field tags (the backtick strings like `gorm:"..."`) tell GORM how to handle
// each field: its column type, constraints, default values, and relationships.
//
// The data model represents a competition platform where:
//   - Organizers create Competitions (individual or team format)
//   - Users register for individual competitions directly
//   - Users form Teams; team leaders register the whole roster for team competitions
//   - Organizers upload Results and publish them once the competition is over
//
// Identity comes from Telegram: each User row is keyed to a Telegram account,
// created lazily the first time that account authenticates.
package models

import (
	"time"

	// uuid provides universally unique identifiers for primary keys.
	// Using UUIDs instead of auto-incrementing integers makes IDs safe to generate
	// client-side and avoids leaking record counts to end users.
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- Enums ---
// Go doesn't have a built-in enum keyword, so we simulate them using a named string
// type plus constants. This gives us type safety while keeping the values
// human-readable in the database.

// CompetitionFormat distinguishes how entrants sign up:
// individually, or as a whole team registered by its leader.
type CompetitionFormat string

const (
	CompetitionFormatIndividual CompetitionFormat = "individual"
	CompetitionFormatTeam       CompetitionFormat = "team"
)

// CompetitionStatus tracks the lifecycle of a competition.
// All values except ResultsPublished are derived from the configured time
// boundaries — see DeriveStatus in status.go. ResultsPublished is sticky:
// it is set explicitly by the organizer and never recomputed away.
type CompetitionStatus string

const (
	CompetitionStatusUpcoming           CompetitionStatus = "upcoming"            // Registration hasn't opened yet
	CompetitionStatusRegistrationOpen   CompetitionStatus = "registration_open"   // Accepting registrations
	CompetitionStatusRegistrationClosed CompetitionStatus = "registration_closed" // Registration over, play hasn't started
	CompetitionStatusOngoing            CompetitionStatus = "ongoing"             // Competition in progress
	CompetitionStatusFinished           CompetitionStatus = "finished"            // Play is over, results pending
	CompetitionStatusResultsPublished   CompetitionStatus = "results_published"   // Terminal: results visible to everyone
)

// TeamRole controls what a user can do within a specific team.
// Roles form a flat authority order: leader > officer > member > substitute.
type TeamRole string

const (
	TeamRoleLeader     TeamRole = "leader"     // Exactly one per team; full control, matches Team.LeaderID
	TeamRoleOfficer    TeamRole = "officer"    // Can manage the roster (add/remove/re-role members)
	TeamRoleMember     TeamRole = "member"     // Regular roster member
	TeamRoleSubstitute TeamRole = "substitute" // On the roster but not a starter
)

// CanManageRoster reports whether the role is allowed to add, remove, or
// re-role other members. Leadership changes are excluded — those go through
// the dedicated transfer operation regardless of role.
func (r TeamRole) CanManageRoster() bool {
	return r == TeamRoleLeader || r == TeamRoleOfficer
}

// TeamStatus is the team's self-declared state. It is informational —
// no automatic transitions are applied (deleting a team removes the row
// rather than flipping it to "disbanded").
type TeamStatus string

const (
	TeamStatusActive            TeamStatus = "active"
	TeamStatusLookingForMembers TeamStatus = "looking_for_members"
	TeamStatusDisbanded         TeamStatus = "disbanded"
	TeamStatusPrivate           TeamStatus = "private"
)

// TeamVisibility controls whether the team appears in public listings.
type TeamVisibility string

const (
	TeamVisibilityPublic     TeamVisibility = "public"
	TeamVisibilityInviteOnly TeamVisibility = "invite_only"
)

// TeamRegistrationStatus tracks a team's entry in one competition.
// Withdrawn rows are kept for audit; a team may re-register after
// withdrawing, so uniqueness applies only to non-withdrawn rows.
type TeamRegistrationStatus string

const (
	TeamRegistrationStatusRegistered   TeamRegistrationStatus = "registered"
	TeamRegistrationStatusWaitlisted   TeamRegistrationStatus = "waitlisted"
	TeamRegistrationStatusWithdrawn    TeamRegistrationStatus = "withdrawn"
	TeamRegistrationStatusDisqualified TeamRegistrationStatus = "disqualified"
	TeamRegistrationStatusCheckedIn    TeamRegistrationStatus = "checked_in"
)

// --- Models ---
// Each struct below maps to a database table. GORM uses the struct name
// (snake_cased and pluralized) as the table name: User -> users, etc.

// User represents a person authenticated through the Telegram Login Widget.
// Rows are created lazily on first login; TelegramID is the stable external
// identifier, unique across the platform.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	TelegramID  int64     `gorm:"uniqueIndex;not null"` // Telegram account id; also the chat id for notifications
	Username    *string   `gorm:"index"`                // Telegram @username; pointer = nullable (not all accounts have one)
	FirstName   *string
	LastName    *string
	AvatarURL   *string
	IsOrganizer bool `gorm:"not null;default:false"` // Elevated capability: create/manage competitions
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BeforeCreate generates the UUID client-side so inserts don't depend on a
// database default. The schema migration keeps gen_random_uuid() as a
// backstop for rows created outside the application.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Competition is the top-level entity organizers create and manage.
//
// The four time boundaries and the roster lock are all optional. Their
// ordering is NOT validated at write time; DeriveStatus must produce a
// deterministic status no matter how they are set.
type Competition struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey"`
	OrganizerID       uuid.UUID         `gorm:"type:uuid;not null;index"`
	Organizer         User              `gorm:"foreignKey:OrganizerID"` // Preloaded for public detail responses
	Title             string            `gorm:"not null;index"`
	Description       *string
	Format            CompetitionFormat `gorm:"type:competition_format;not null;default:'individual'"`
	ExternalLinksJSON *string           // Free-form JSON object of named links ({"rules": "...", "platform": "..."})
	RegStartAt        *time.Time        // Registration window opens
	RegEndAt          *time.Time        // Registration window closes
	CompStartAt       *time.Time        // Play starts
	CompEndAt         *time.Time        // Play ends
	RosterLockAt      *time.Time        // Team format: withdrawals rejected after this instant
	MinTeamMembers    *int              // Team format: roster size lower bound at registration time
	MaxTeamMembers    *int              // Team format: roster size upper bound at registration time
	Status            CompetitionStatus `gorm:"type:competition_status;not null;default:'upcoming';index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (c *Competition) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Registration records one user's entry in one individual-format competition.
// The composite primary key IS the uniqueness invariant: at most one row per
// (user, competition) pair, enforced by the database even under concurrent
// registration attempts.
type Registration struct {
	UserID        uuid.UUID   `gorm:"type:uuid;primaryKey"`
	CompetitionID uuid.UUID   `gorm:"type:uuid;primaryKey"`
	User          User        `gorm:"foreignKey:UserID"`
	Competition   Competition `gorm:"foreignKey:CompetitionID"`
	RegisteredAt  time.Time   `gorm:"not null;autoCreateTime"`
}

// Team is a named group of users. LeaderID always matches exactly one
// membership row holding TeamRoleLeader; every operation that could break
// that invariant (transfer, removal, role change) guards against it.
type Team struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Name        string         `gorm:"uniqueIndex;not null"`
	Tag         *string        `gorm:"index"` // Short clan-style tag, e.g. "NAVI"
	Description *string
	LeaderID    uuid.UUID      `gorm:"type:uuid;not null"`
	Leader      User           `gorm:"foreignKey:LeaderID"`
	Status      TeamStatus     `gorm:"type:team_status;not null;default:'active'"`
	Visibility  TeamVisibility `gorm:"type:team_visibility;not null;default:'public'"`
	CreatedAt   time.Time
	Members     []TeamMember `gorm:"foreignKey:TeamID"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TeamMember links a User to a Team with a role. Composite primary key
// prevents duplicate memberships.
type TeamMember struct {
	TeamID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Team     Team      `gorm:"foreignKey:TeamID"`
	User     User      `gorm:"foreignKey:UserID"`
	Role     TeamRole  `gorm:"type:team_role;not null;default:'member'"`
	JoinedAt time.Time `gorm:"not null;autoCreateTime"`
}

// TeamRegistration records one team's entry in one team-format competition.
// Rows are never hard-deleted: withdrawal flips Status to "withdrawn" so the
// history stays auditable. The "at most one active registration" invariant
// is a partial unique index on (team_id, competition_id) WHERE status <>
// 'withdrawn' — see the initial schema migration.
type TeamRegistration struct {
	ID            uuid.UUID              `gorm:"type:uuid;primaryKey"`
	TeamID        uuid.UUID              `gorm:"type:uuid;not null;index"`
	CompetitionID uuid.UUID              `gorm:"type:uuid;not null;index"`
	Team          Team                   `gorm:"foreignKey:TeamID"`
	Competition   Competition            `gorm:"foreignKey:CompetitionID"`
	Status        TeamRegistrationStatus `gorm:"type:team_registration_status;not null;default:'registered'"`
	RegisteredAt  time.Time              `gorm:"not null;autoCreateTime"`
}

func (r *TeamRegistration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Result is one user's outcome in one competition, uploaded by the
// organizer. ResultValue is free text (a time, a score, a placement band)
// so any scoring scheme fits. Results become publicly readable only once
// the competition status is results_published.
type Result struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_result_user_competition"`
	CompetitionID uuid.UUID   `gorm:"type:uuid;not null;uniqueIndex:idx_result_user_competition"`
	User          User        `gorm:"foreignKey:UserID"`
	Competition   Competition `gorm:"foreignKey:CompetitionID"`
	ResultValue   *string
	Rank          *int      `gorm:"index"`
	SubmittedAt   time.Time `gorm:"not null;autoCreateTime"`
}

func (r *Result) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
