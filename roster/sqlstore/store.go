// Package sqlstore implements a roster.Store backed by a SQL database.
// The "sqlite3" (github.com/mattn/go-sqlite3) and "postgres"
// (github.com/lib/pq) drivers are supported.
package sqlstore

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gradalloc.dev/core/metrics"
	"go.gradalloc.dev/core/roster"
)

// Supported driver names.
const (
	SQLite   = "sqlite3"
	Postgres = "postgres"
)

// Schema is applied by Open, and is idempotent. Statements are portable
// across SQLite and PostgreSQL.
var Schema = []string{`
	CREATE TABLE IF NOT EXISTS teams (
		id          TEXT PRIMARY KEY NOT NULL,
		name        TEXT NOT NULL DEFAULT '',
		capacity    INTEGER NOT NULL,
		lower_bound INTEGER NOT NULL DEFAULT 0
	)`, `
	CREATE TABLE IF NOT EXISTS graduates (
		id            TEXT PRIMARY KEY NOT NULL,
		name          TEXT NOT NULL DEFAULT '',
		assigned_team TEXT REFERENCES teams(id)
	)`, `
	CREATE TABLE IF NOT EXISTS preferences (
		graduate_id TEXT NOT NULL REFERENCES graduates(id),
		team_id     TEXT NOT NULL REFERENCES teams(id),
		weight      INTEGER NOT NULL,
		PRIMARY KEY (graduate_id, team_id)
	)`, `
	CREATE TABLE IF NOT EXISTS allocation_rounds (
		id           TEXT PRIMARY KEY NOT NULL,
		strategy     TEXT NOT NULL,
		graduates    INTEGER NOT NULL,
		total_cost   BIGINT NOT NULL,
		completed_at BIGINT NOT NULL
	)`,
}

// Store is a roster.Store of a SQL database. It also implements
// roster.FixtureStore, roster.RoundRecorder, and roster.Transactor.
// Graduates and Teams are listed in ID order.
type Store struct {
	// DB is the opened database.
	DB *sql.DB

	q querier // DB, or the Tx of a current Transact.
}

// querier is the common interface of *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Open the database of the driver and data source name, and apply Schema.
func Open(driver, dsn string) (*Store, error) {
	if driver != SQLite && driver != Postgres {
		return nil, errors.Errorf("unsupported database driver (%s; expected %s or %s)",
			driver, SQLite, Postgres)
	}
	var db, err = sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.WithMessage(err, "opening database")
	}
	if driver == SQLite {
		// SQLite permits a single writer. Serialize on one connection
		// rather than fail with "database is locked".
		db.SetMaxOpenConns(1)
	}
	var s = New(db)

	if err = s.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.WithFields(log.Fields{"driver": driver}).Debug("applied roster schema")
	return s, nil
}

// New returns a Store of an opened database, to which Schema has already
// been applied.
func New(db *sql.DB) *Store { return &Store{DB: db, q: db} }

// Close the database.
func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) applySchema(ctx context.Context) (err error) {
	defer observe("schema", &err)

	for _, stmt := range Schema {
		if _, err = s.q.ExecContext(ctx, stmt); err != nil {
			return errors.WithMessage(err, "applying schema")
		}
	}
	return nil
}

// Transact runs the function with a Store scoped to a database transaction,
// which commits if the function returns nil and rolls back otherwise. If
// the Store is already scoped to a transaction, the function is invoked
// directly with it.
func (s *Store) Transact(ctx context.Context, fn func(roster.Store) error) (err error) {
	if _, ok := s.q.(*sql.Tx); ok {
		return fn(s)
	}
	defer observe("transact", &err)

	var tx *sql.Tx
	if tx, err = s.DB.BeginTx(ctx, nil); err != nil {
		return errors.WithMessage(err, "beginning transaction")
	}
	if err = fn(&Store{DB: s.DB, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.WithFields(log.Fields{"err": rbErr}).Warn("failed to roll back transaction")
		}
		return err
	}
	return errors.WithMessage(tx.Commit(), "committing transaction")
}

// Reset deletes all rounds, preferences, graduates, and teams.
func (s *Store) Reset(ctx context.Context) (err error) {
	defer observe("reset", &err)

	for _, table := range []string{"allocation_rounds", "preferences", "graduates", "teams"} {
		if _, err = s.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.WithMessagef(err, "deleting from %s", table)
		}
	}
	return nil
}

func (s *Store) ListGraduates(ctx context.Context) (out []roster.Graduate, err error) {
	defer observe("list_graduates", &err)

	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, assigned_team FROM graduates ORDER BY id`)
	if err != nil {
		return nil, errors.WithMessage(err, "querying graduates")
	}
	defer rows.Close()

	for rows.Next() {
		var g roster.Graduate
		var assigned sql.NullString

		if err = rows.Scan(&g.ID, &g.Name, &assigned); err != nil {
			return nil, errors.WithMessage(err, "scanning graduate")
		}
		g.AssignedTeam = assigned.String
		out = append(out, g)
	}
	return out, errors.WithMessage(rows.Err(), "reading graduates")
}

func (s *Store) ListTeams(ctx context.Context) (out []roster.Team, err error) {
	defer observe("list_teams", &err)

	rows, err := s.q.QueryContext(ctx,
		`SELECT id, name, capacity, lower_bound FROM teams ORDER BY id`)
	if err != nil {
		return nil, errors.WithMessage(err, "querying teams")
	}
	defer rows.Close()

	for rows.Next() {
		var t roster.Team
		if err = rows.Scan(&t.ID, &t.Name, &t.Capacity, &t.LowerBound); err != nil {
			return nil, errors.WithMessage(err, "scanning team")
		}
		out = append(out, t)
	}
	return out, errors.WithMessage(rows.Err(), "reading teams")
}

func (s *Store) GetPreference(ctx context.Context, graduateID, teamID string) (pref roster.Preference, err error) {
	defer observe("get_preference", &err)

	pref = roster.Preference{GraduateID: graduateID, TeamID: teamID}
	err = s.q.QueryRowContext(ctx,
		`SELECT weight FROM preferences WHERE graduate_id = $1 AND team_id = $2`,
		graduateID, teamID).Scan(&pref.Weight)

	if err == sql.ErrNoRows {
		return roster.Preference{}, roster.ErrPreferenceNotFound
	} else if err != nil {
		return roster.Preference{}, errors.WithMessage(err, "querying preference")
	}
	return pref, nil
}

func (s *Store) GetOrCreatePreference(ctx context.Context, graduateID, teamID string) (pref roster.Preference, err error) {
	defer observe("get_or_create_preference", &err)

	if _, err = s.q.ExecContext(ctx, `
		INSERT INTO preferences (graduate_id, team_id, weight) VALUES ($1, $2, $3)
		ON CONFLICT (graduate_id, team_id) DO NOTHING`,
		graduateID, teamID, roster.DefaultWeight); err != nil {
		return roster.Preference{}, errors.WithMessage(err, "inserting preference")
	}

	pref = roster.Preference{GraduateID: graduateID, TeamID: teamID}
	if err = s.q.QueryRowContext(ctx,
		`SELECT weight FROM preferences WHERE graduate_id = $1 AND team_id = $2`,
		graduateID, teamID).Scan(&pref.Weight); err != nil {
		return roster.Preference{}, errors.WithMessage(err, "querying preference")
	}
	return pref, nil
}

func (s *Store) SavePreference(ctx context.Context, pref roster.Preference) (err error) {
	defer observe("save_preference", &err)

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO preferences (graduate_id, team_id, weight) VALUES ($1, $2, $3)
		ON CONFLICT (graduate_id, team_id) DO UPDATE SET weight = excluded.weight`,
		pref.GraduateID, pref.TeamID, pref.Weight)
	return errors.WithMessage(err, "upserting preference")
}

func (s *Store) SaveGraduate(ctx context.Context, grad roster.Graduate) (err error) {
	defer observe("save_graduate", &err)

	var assigned = sql.NullString{String: grad.AssignedTeam, Valid: grad.AssignedTeam != ""}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO graduates (id, name, assigned_team) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, assigned_team = excluded.assigned_team`,
		grad.ID, grad.Name, assigned)
	return errors.WithMessage(err, "upserting graduate")
}

func (s *Store) SaveTeam(ctx context.Context, team roster.Team) (err error) {
	defer observe("save_team", &err)

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO teams (id, name, capacity, lower_bound) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name,
			capacity = excluded.capacity, lower_bound = excluded.lower_bound`,
		team.ID, team.Name, team.Capacity, team.LowerBound)
	return errors.WithMessage(err, "upserting team")
}

func (s *Store) RecordRound(ctx context.Context, round roster.Round) (err error) {
	defer observe("record_round", &err)

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO allocation_rounds (id, strategy, graduates, total_cost, completed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		round.ID, round.Strategy, round.Graduates, round.TotalCost, round.CompletedAt.UnixNano())
	return errors.WithMessage(err, "inserting round")
}

// ListRounds returns recorded Rounds, most recent first, up to |limit|.
func (s *Store) ListRounds(ctx context.Context, limit int) (out []roster.Round, err error) {
	defer observe("list_rounds", &err)

	rows, err := s.q.QueryContext(ctx, `
		SELECT id, strategy, graduates, total_cost, completed_at
		FROM allocation_rounds ORDER BY completed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, errors.WithMessage(err, "querying rounds")
	}
	defer rows.Close()

	for rows.Next() {
		var r roster.Round
		var completedAt int64

		if err = rows.Scan(&r.ID, &r.Strategy, &r.Graduates, &r.TotalCost, &completedAt); err != nil {
			return nil, errors.WithMessage(err, "scanning round")
		}
		r.CompletedAt = time.Unix(0, completedAt).UTC()
		out = append(out, r)
	}
	return out, errors.WithMessage(rows.Err(), "reading rounds")
}

func observe(op string, err *error) {
	metrics.RosterStoreOpsTotal.WithLabelValues(op, metrics.StatusOf(*err)).Inc()
}

var (
	_ roster.FixtureStore  = (*Store)(nil)
	_ roster.RoundRecorder = (*Store)(nil)
	_ roster.Transactor    = (*Store)(nil)
)
