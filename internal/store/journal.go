package store

import (
	"context"
	"database/sql"
	"time"

	log "github.com/echocat/slf4g"
	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/pipeline"
)

// Entry is one journaled command.
type Entry struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Seq        uint64        `json:"seq"`
	Hand       int           `json:"hand"`
	Handedness string        `json:"handedness,omitempty"`
	Gesture    string        `json:"gesture"`
	Rule       string        `json:"rule,omitempty"`
	Kind       string        `json:"kind"`
	Command    string        `json:"command"`
	Status     string        `json:"status"`
	Level      *float64      `json:"level,omitempty"`
	Latency    time.Duration `json:"latency"`
	Error      string        `json:"error,omitempty"`
}

// JournalRepository records executed commands. It implements
// pipeline.Observer.
type JournalRepository struct {
	db *sql.DB
}

// Journal returns the command journal for this store.
func (s *Store) Journal() *JournalRepository {
	return &JournalRepository{db: s.db}
}

// Record inserts e. An empty ID is replaced by a new UUID.
func (r *JournalRepository) Record(e *Entry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	var level sql.NullFloat64
	if e.Level != nil {
		level = sql.NullFloat64{Float64: *e.Level, Valid: true}
	}

	_, err := r.db.Exec(
		`INSERT INTO commands (id, ts_ms, seq, hand, handedness, gesture, rule, kind, command, status, level, latency_us, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixMilli(), int64(e.Seq), e.Hand, e.Handedness, e.Gesture, e.Rule,
		e.Kind, e.Command, e.Status, level, e.Latency.Microseconds(), e.Error,
	)
	return err
}

// Entries converts the dispatched and failed outcomes of r.
func Entries(r pipeline.Report) []*Entry {
	var out []*Entry
	for _, o := range r.Outcomes {
		if o.Status != pipeline.StatusDispatched && o.Status != pipeline.StatusFailed {
			continue
		}
		e := &Entry{
			Timestamp:  r.Timestamp,
			Seq:        r.Seq,
			Hand:       o.Hand,
			Handedness: o.Handedness,
			Gesture:    string(o.Event.Kind),
			Rule:       string(o.Event.Rule),
			Kind:       string(o.Command.Kind),
			Command:    o.Command.String(),
			Status:     string(o.Status),
			Latency:    o.Latency,
			Error:      o.Error(),
		}
		if o.HasLevel {
			level := o.Level
			e.Level = &level
		}
		out = append(out, e)
	}
	return out
}

// Observe journals every command in the report.
func (r *JournalRepository) Observe(_ context.Context, report pipeline.Report) {
	for _, e := range Entries(report) {
		if err := r.Record(e); err != nil {
			log.With("command", e.Command).
				WithError(err).
				Warn("Cannot journal command.")
		}
	}
}

// Recent returns up to limit entries, newest first.
func (r *JournalRepository) Recent(limit int) ([]*Entry, error) {
	return r.query(`ORDER BY ts_ms DESC, rowid DESC LIMIT ?`, limit)
}

func (r *JournalRepository) query(clause string, args ...any) ([]*Entry, error) {
	rows, err := r.db.Query(
		`SELECT id, ts_ms, seq, hand, handedness, gesture, rule, kind, command, status, level, latency_us, error
		 FROM commands `+clause,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e := &Entry{}
		var tsMs, seq, latencyUs int64
		var level sql.NullFloat64

		err := rows.Scan(&e.ID, &tsMs, &seq, &e.Hand, &e.Handedness, &e.Gesture, &e.Rule,
			&e.Kind, &e.Command, &e.Status, &level, &latencyUs, &e.Error)
		if err != nil {
			return nil, err
		}

		e.Timestamp = time.UnixMilli(tsMs)
		e.Seq = uint64(seq)
		e.Latency = time.Duration(latencyUs) * time.Microsecond
		if level.Valid {
			v := level.Float64
			e.Level = &v
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetByID retrieves an entry by its ID.
func (r *JournalRepository) GetByID(id string) (*Entry, error) {
	entries, err := r.query(`WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	return entries[0], nil
}

// Count returns the number of journaled commands.
func (r *JournalRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM commands`).Scan(&n)
	return n, err
}

// Prune deletes entries older than before and returns how many were removed.
func (r *JournalRepository) Prune(before time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM commands WHERE ts_ms < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
