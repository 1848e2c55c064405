package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Commands table - journal of executed and failed commands
		`CREATE TABLE IF NOT EXISTS commands (
			id TEXT PRIMARY KEY,
			ts_ms INTEGER NOT NULL,
			seq INTEGER NOT NULL DEFAULT 0,
			hand INTEGER NOT NULL DEFAULT 0,
			handedness TEXT NOT NULL DEFAULT '',
			gesture TEXT NOT NULL,
			rule TEXT NOT NULL DEFAULT '',
			kind TEXT NOT NULL,
			command TEXT NOT NULL,
			status TEXT NOT NULL CHECK(status IN ('dispatched', 'failed')),
			level REAL,
			latency_us INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT ''
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_commands_ts ON commands(ts_ms)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
