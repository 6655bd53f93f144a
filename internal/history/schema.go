package history

import (
	"database/sql"

	"codeberg.org/mutker/suspendctl/internal/errors"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS decisions (
	       timestamp    INTEGER NOT NULL,
	       active       INTEGER NOT NULL CHECK (active IN (0, 1)),
	       check_name   TEXT NOT NULL,
	       idle_seconds REAL NOT NULL,
	       wake_at      INTEGER,
	       action       TEXT NOT NULL
	   );
	   CREATE INDEX IF NOT EXISTS decisions_timestamp ON decisions (timestamp);`

	insertDecisionSQL = `
    INSERT INTO decisions (
        timestamp, active, check_name, idle_seconds, wake_at, action
    ) VALUES (?, ?, ?, ?, ?, ?)`
)

// InitSchema creates the database schema with the current version.
func InitSchema(db *sql.DB) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(ErrSchemaFailed, err)
	}

	if _, err := tx.Exec(`
        INSERT OR IGNORE INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.Wrap(ErrSchemaFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaFailed, err)
	}
	committed = true

	logger.Debug().Int("version", SchemaVersion).Msg("History schema initialized")

	return nil
}

// GetSchemaVersion returns the schema version present in the database, 0
// when the database is empty.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name='schema_versions'
        )
    `).Scan(&exists)
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaFailed, err)
	}

	return version, nil
}

// ensureSchema initializes an empty database and rejects one written by
// a newer version.
func ensureSchema(db *sql.DB) error {
	version, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	switch {
	case version == 0:
		return InitSchema(db)
	case version == SchemaVersion:
		return nil
	default:
		return errors.New().WithMessage(ErrSchemaFailed, "unsupported history schema version").WithData(version)
	}
}
