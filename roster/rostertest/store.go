// Package rostertest provides an in-memory roster.Store for use in tests.
package rostertest

import (
	"context"
	"fmt"

	"go.gradalloc.dev/core/roster"
)

// Store is an in-memory roster.Store, roster.FixtureStore, roster.RoundRecorder
// and roster.Transactor. Graduates and Teams are listed in the order they
// were first saved.
type Store struct {
	Graduates   []roster.Graduate
	Teams       []roster.Team
	Preferences map[Pair]int
	Rounds      []roster.Round

	// SaveGraduateErrs are returned by SaveGraduate of the keyed graduate ID.
	SaveGraduateErrs map[string]error
	// Calls counts Store invocations, keyed on method name.
	Calls map[string]int
}

// Pair is a (graduate, team) Preference key.
type Pair struct {
	GraduateID, TeamID string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		Preferences:      make(map[Pair]int),
		SaveGraduateErrs: make(map[string]error),
		Calls:            make(map[string]int),
	}
}

// NewStoreFromFixture returns a Store having the Fixture applied.
func NewStoreFromFixture(f *roster.Fixture) *Store {
	var s = NewStore()
	if err := f.Apply(context.Background(), s); err != nil {
		panic(err) // Cannot fail.
	}
	s.Calls = make(map[string]int)
	return s
}

// Weight returns the Preference weight of the pair, and whether it exists.
func (s *Store) Weight(graduateID, teamID string) (int, bool) {
	var w, ok = s.Preferences[Pair{GraduateID: graduateID, TeamID: teamID}]
	return w, ok
}

// Graduate returns the Graduate having the ID, or panics.
func (s *Store) Graduate(id string) roster.Graduate {
	for _, g := range s.Graduates {
		if g.ID == id {
			return g
		}
	}
	panic(fmt.Sprintf("graduate %s not found", id))
}

// AssignedTeams returns graduate IDs mapped to their assigned team ID.
func (s *Store) AssignedTeams() map[string]string {
	var out = make(map[string]string, len(s.Graduates))
	for _, g := range s.Graduates {
		out[g.ID] = g.AssignedTeam
	}
	return out
}

func (s *Store) ListGraduates(context.Context) ([]roster.Graduate, error) {
	s.Calls["ListGraduates"]++
	return append([]roster.Graduate(nil), s.Graduates...), nil
}

func (s *Store) ListTeams(context.Context) ([]roster.Team, error) {
	s.Calls["ListTeams"]++
	return append([]roster.Team(nil), s.Teams...), nil
}

func (s *Store) GetPreference(_ context.Context, graduateID, teamID string) (roster.Preference, error) {
	s.Calls["GetPreference"]++

	if w, ok := s.Weight(graduateID, teamID); ok {
		return roster.Preference{GraduateID: graduateID, TeamID: teamID, Weight: w}, nil
	}
	return roster.Preference{}, roster.ErrPreferenceNotFound
}

func (s *Store) GetOrCreatePreference(_ context.Context, graduateID, teamID string) (roster.Preference, error) {
	s.Calls["GetOrCreatePreference"]++

	var key = Pair{GraduateID: graduateID, TeamID: teamID}
	if _, ok := s.Preferences[key]; !ok {
		s.Preferences[key] = roster.DefaultWeight
	}
	return roster.Preference{GraduateID: graduateID, TeamID: teamID, Weight: s.Preferences[key]}, nil
}

func (s *Store) SavePreference(_ context.Context, pref roster.Preference) error {
	s.Calls["SavePreference"]++
	s.Preferences[Pair{GraduateID: pref.GraduateID, TeamID: pref.TeamID}] = pref.Weight
	return nil
}

func (s *Store) SaveGraduate(_ context.Context, grad roster.Graduate) error {
	s.Calls["SaveGraduate"]++

	if err := s.SaveGraduateErrs[grad.ID]; err != nil {
		return err
	}
	for i := range s.Graduates {
		if s.Graduates[i].ID == grad.ID {
			s.Graduates[i] = grad
			return nil
		}
	}
	s.Graduates = append(s.Graduates, grad)
	return nil
}

func (s *Store) SaveTeam(_ context.Context, team roster.Team) error {
	s.Calls["SaveTeam"]++

	for i := range s.Teams {
		if s.Teams[i].ID == team.ID {
			s.Teams[i] = team
			return nil
		}
	}
	s.Teams = append(s.Teams, team)
	return nil
}

func (s *Store) RecordRound(_ context.Context, round roster.Round) error {
	s.Calls["RecordRound"]++
	s.Rounds = append(s.Rounds, round)
	return nil
}

// Transact invokes the function with the Store. If it returns an error,
// Graduates, Teams, Preferences, and Rounds are restored to their state
// prior to the call.
func (s *Store) Transact(_ context.Context, fn func(roster.Store) error) error {
	var (
		graduates   = append([]roster.Graduate(nil), s.Graduates...)
		teams       = append([]roster.Team(nil), s.Teams...)
		rounds      = append([]roster.Round(nil), s.Rounds...)
		preferences = make(map[Pair]int, len(s.Preferences))
	)
	for k, v := range s.Preferences {
		preferences[k] = v
	}

	if err := fn(s); err != nil {
		s.Graduates, s.Teams, s.Rounds, s.Preferences = graduates, teams, rounds, preferences
		return err
	}
	return nil
}

var (
	_ roster.FixtureStore  = (*Store)(nil)
	_ roster.RoundRecorder = (*Store)(nil)
	_ roster.Transactor    = (*Store)(nil)
)
