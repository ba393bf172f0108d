package roster

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	// MinWeight is the weight of a graduate's least-preferred team.
	MinWeight = 1
	// MaxWeight is the weight of a graduate's most-preferred team.
	MaxWeight = 5
	// DiscouragedWeight is the lowest weight of the reserved range marking a
	// team the graduate previously held, which allocation should avoid.
	DiscouragedWeight = 100
	// DefaultWeight is the weight of a Preference created on demand.
	DefaultWeight = 3

	minIDLen, maxIDLen = 1, 128
)

// ErrPreferenceNotFound is returned by Store.GetPreference if no Preference
// exists for the (graduate, team) pair.
var ErrPreferenceNotFound = errors.New("preference not found")

// Graduate is a person placed on exactly one Team by each allocation round.
type Graduate struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
	// AssignedTeam is the ID of the Team of the graduate's most recent
	// allocation round, or empty if the graduate has never been placed.
	AssignedTeam string `yaml:"assigned_team,omitempty"`
}

// Validate returns an error if the Graduate is not well-formed.
func (m Graduate) Validate() error {
	if err := ValidateToken(m.ID, minIDLen, maxIDLen); err != nil {
		return ExtendContext(err, "ID")
	} else if m.AssignedTeam == "" {
		return nil
	} else if err = ValidateToken(m.AssignedTeam, minIDLen, maxIDLen); err != nil {
		return ExtendContext(err, "AssignedTeam")
	}
	return nil
}

// Team receives graduates, up to its Capacity. LowerBound is the number of
// seats which must be filled before remaining graduates are apportioned
// across all teams.
type Team struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name,omitempty"`
	Capacity   int    `yaml:"capacity"`
	LowerBound int    `yaml:"lower_bound,omitempty"`
}

// Validate returns an error if the Team is not well-formed.
func (m Team) Validate() error {
	if err := ValidateToken(m.ID, minIDLen, maxIDLen); err != nil {
		return ExtendContext(err, "ID")
	} else if m.Capacity < 0 {
		return NewValidationError("invalid Capacity (%d; expected >= 0)", m.Capacity)
	} else if m.LowerBound < 0 || m.LowerBound > m.Capacity {
		return NewValidationError("invalid LowerBound (%d; expected 0 <= LowerBound <= %d)",
			m.LowerBound, m.Capacity)
	}
	return nil
}

// Preference is a graduate's weighted ranking of a team. Weights of
// [MinWeight, MaxWeight] are the strength of preference, where MaxWeight
// is most preferred.
// Weights of DiscouragedWeight and above mark a previously-held team, and
// grow with each round the graduate held it.
type Preference struct {
	GraduateID string `yaml:"graduate"`
	TeamID     string `yaml:"team"`
	Weight     int    `yaml:"weight"`
}

// Validate returns an error if the Preference is not well-formed.
func (m Preference) Validate() error {
	if err := ValidateToken(m.GraduateID, minIDLen, maxIDLen); err != nil {
		return ExtendContext(err, "GraduateID")
	} else if err = ValidateToken(m.TeamID, minIDLen, maxIDLen); err != nil {
		return ExtendContext(err, "TeamID")
	} else if !m.IsDiscouraged() && (m.Weight < MinWeight || m.Weight > MaxWeight) {
		return NewValidationError("invalid Weight (%d; expected %d <= Weight <= %d, or Weight >= %d)",
			m.Weight, MinWeight, MaxWeight, DiscouragedWeight)
	}
	return nil
}

// IsDiscouraged returns true if the Preference marks a previously-held team.
func (m Preference) IsDiscouraged() bool { return m.Weight >= DiscouragedWeight }

// Rank of the Preference, where 1 is the graduate's most-preferred team
// and MaxWeight their least. Rank is zero for a discouraged Preference.
func (m Preference) Rank() int {
	if m.IsDiscouraged() {
		return 0
	}
	return MaxWeight + 1 - m.Weight
}

// Round describes a completed allocation round.
type Round struct {
	ID          string
	Strategy    string
	Graduates   int
	TotalCost   int64
	CompletedAt time.Time
}

// Store is the persistence of graduates, teams, and their preferences
// which allocation rounds read and update. Implementations need not be
// safe for concurrent use: an allocation round requires exclusive access.
type Store interface {
	// ListGraduates returns all Graduates, in a stable order.
	ListGraduates(context.Context) ([]Graduate, error)
	// ListTeams returns all Teams, in a stable order.
	ListTeams(context.Context) ([]Team, error)
	// GetPreference returns the Preference of the (graduate, team) pair,
	// or ErrPreferenceNotFound if none exists.
	GetPreference(ctx context.Context, graduateID, teamID string) (Preference, error)
	// GetOrCreatePreference returns the Preference of the (graduate, team)
	// pair, first creating it with DefaultWeight if none exists.
	GetOrCreatePreference(ctx context.Context, graduateID, teamID string) (Preference, error)
	// SavePreference creates or updates the Preference.
	SavePreference(context.Context, Preference) error
	// SaveGraduate creates or updates the Graduate.
	SaveGraduate(context.Context, Graduate) error
}

// RoundRecorder is optionally implemented by a Store which keeps a history
// of completed allocation rounds.
type RoundRecorder interface {
	RecordRound(context.Context, Round) error
}

// Transactor runs a function against a Store within a transaction. If the
// function returns an error, none of its Store mutations are applied.
type Transactor interface {
	Transact(ctx context.Context, fn func(Store) error) error
}
