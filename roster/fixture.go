package roster

import (
	"context"
	"io"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Fixture is a complete roster of teams, graduates and their preferences,
// as loaded from YAML:
//
//	teams:
//	  - id: platform
//	    capacity: 3
//	    lower_bound: 1
//	  - id: payments
//	    capacity: 2
//	graduates:
//	  - id: alice
//	  - id: bob
//	    assigned_team: payments
//	preferences:
//	  alice: {platform: 5, payments: 2}
//	  bob: {platform: 1, payments: 4}
type Fixture struct {
	Teams     []Team     `yaml:"teams"`
	Graduates []Graduate `yaml:"graduates"`
	// Preferences maps a graduate ID, then a team ID, to the weight of
	// the graduate's Preference for the team.
	Preferences map[string]map[string]int `yaml:"preferences"`
}

// FixtureStore is a Store which can also create and update Teams.
type FixtureStore interface {
	Store
	SaveTeam(context.Context, Team) error
}

// DecodeFixture decodes and validates a YAML Fixture.
func DecodeFixture(r io.Reader) (*Fixture, error) {
	var dec = yaml.NewDecoder(r)
	dec.SetStrict(true)

	var f = new(Fixture)
	if err := dec.Decode(f); err != nil {
		return nil, errors.WithMessage(err, "decoding fixture")
	} else if err = f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Validate returns an error if the Fixture is not well-formed, has
// duplicate IDs, or references a graduate or team which it doesn't define.
func (f *Fixture) Validate() error {
	var teams = make(map[string]struct{}, len(f.Teams))
	var graduates = make(map[string]struct{}, len(f.Graduates))

	for i, t := range f.Teams {
		if err := t.Validate(); err != nil {
			return ExtendContext(err, "Teams[%d]", i)
		} else if _, ok := teams[t.ID]; ok {
			return NewValidationError("duplicate team ID (%s)", t.ID)
		}
		teams[t.ID] = struct{}{}
	}
	for i, g := range f.Graduates {
		if err := g.Validate(); err != nil {
			return ExtendContext(err, "Graduates[%d]", i)
		} else if _, ok := graduates[g.ID]; ok {
			return NewValidationError("duplicate graduate ID (%s)", g.ID)
		} else if _, ok = teams[g.AssignedTeam]; g.AssignedTeam != "" && !ok {
			return NewValidationError("graduate %s has unknown AssignedTeam (%s)", g.ID, g.AssignedTeam)
		}
		graduates[g.ID] = struct{}{}
	}
	for _, p := range f.PreferenceList() {
		if err := p.Validate(); err != nil {
			return ExtendContext(err, "Preferences[%s][%s]", p.GraduateID, p.TeamID)
		} else if _, ok := graduates[p.GraduateID]; !ok {
			return NewValidationError("preference of unknown graduate (%s)", p.GraduateID)
		} else if _, ok = teams[p.TeamID]; !ok {
			return NewValidationError("preference for unknown team (%s)", p.TeamID)
		}
	}
	return nil
}

// PreferenceList returns Fixture Preferences ordered on graduate, then team ID.
func (f *Fixture) PreferenceList() []Preference {
	var out []Preference
	for g, teams := range f.Preferences {
		for t, w := range teams {
			out = append(out, Preference{GraduateID: g, TeamID: t, Weight: w})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GraduateID != out[j].GraduateID {
			return out[i].GraduateID < out[j].GraduateID
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out
}

// MissingPreferences returns the (graduate, team) pairs of the Fixture having
// no Preference, ordered on graduate and then team. Allocation rounds fail
// if any pair is missing.
func (f *Fixture) MissingPreferences() []Preference {
	var out []Preference
	for _, g := range f.Graduates {
		for _, t := range f.Teams {
			if _, ok := f.Preferences[g.ID][t.ID]; !ok {
				out = append(out, Preference{GraduateID: g.ID, TeamID: t.ID})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GraduateID != out[j].GraduateID {
			return out[i].GraduateID < out[j].GraduateID
		}
		return out[i].TeamID < out[j].TeamID
	})
	return out
}

// Apply the Fixture to the FixtureStore: Teams are saved first, then
// Graduates, and then Preferences.
func (f *Fixture) Apply(ctx context.Context, store FixtureStore) error {
	for _, t := range f.Teams {
		if err := store.SaveTeam(ctx, t); err != nil {
			return errors.WithMessagef(err, "saving team %s", t.ID)
		}
	}
	for _, g := range f.Graduates {
		if err := store.SaveGraduate(ctx, g); err != nil {
			return errors.WithMessagef(err, "saving graduate %s", g.ID)
		}
	}
	for _, p := range f.PreferenceList() {
		if err := store.SavePreference(ctx, p); err != nil {
			return errors.WithMessagef(err, "saving preference %s/%s", p.GraduateID, p.TeamID)
		}
	}
	return nil
}
