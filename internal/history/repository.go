package history

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"codeberg.org/mutker/suspendctl/internal/errors"
	"codeberg.org/mutker/suspendctl/internal/logger"
)

const (
	ErrInvalidPath       = errors.ErrorCode("history_invalid_path")
	ErrStorageInit       = errors.ErrorCode("history_storage_init_failed")
	ErrStorageClose      = errors.ErrorCode("history_storage_close_failed")
	ErrSchemaFailed      = errors.ErrorCode("history_schema_failed")
	ErrTransactionFailed = errors.ErrorCode("history_transaction_failed")
)

const (
	defaultBatchSize    = 16
	defaultFlushTimeout = 30 * time.Second
	defaultDirPerm      = 0o755
)

// Config configures the sqlite decision log.
type Config struct {
	Path         string
	BatchSize    int
	BatchTimeout time.Duration
}

type repository struct {
	db            *sql.DB
	cfg           Config
	mu            sync.Mutex
	buffer        []*Decision
	flushTicker   *time.Ticker
	shutdownChan  chan struct{}
	flushDoneChan chan struct{}
}

// NewRepository opens (creating if needed) the decision log database.
func NewRepository(cfg Config) (Recorder, error) {
	errFactory := errors.New()

	if cfg.Path == "" {
		return nil, errFactory.New(ErrInvalidPath)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultFlushTimeout
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err).WithData(cfg.Path)
	}

	dsn := cfg.Path + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err).WithData(cfg.Path)
	}

	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info().
		Str("path", cfg.Path).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Msg("Decision history initialized")

	repo := &repository{
		db:            db,
		cfg:           cfg,
		buffer:        make([]*Decision, 0, cfg.BatchSize),
		flushTicker:   time.NewTicker(cfg.BatchTimeout),
		shutdownChan:  make(chan struct{}),
		flushDoneChan: make(chan struct{}),
	}
	go repo.flusher()

	return repo, nil
}

func (r *repository) Record(decision *Decision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, decision)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) Close() error {
	close(r.shutdownChan)
	r.flushTicker.Stop()
	<-r.flushDoneChan

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}

	logger.Debug().Msg("Decision history closed")

	return nil
}

func (r *repository) flusher() {
	defer close(r.flushDoneChan)

	for {
		select {
		case <-r.flushTicker.C:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Warn().Err(err).Msg("Periodic history flush failed")
			}
			r.mu.Unlock()
		case <-r.shutdownChan:
			r.mu.Lock()
			if err := r.flush(); err != nil {
				logger.Warn().Err(err).Msg("Final history flush failed")
			}
			r.mu.Unlock()
			return
		}
	}
}

// flush writes the buffered decisions in one transaction. Callers must
// hold the mutex.
func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertDecisionSQL)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, decision := range r.buffer {
		var wakeAt any
		if !decision.WakeAt.IsZero() {
			wakeAt = decision.WakeAt.Unix()
		}

		if _, err := stmt.Exec(
			decision.Timestamp.Unix(),
			boolToInt(decision.Active),
			decision.Check,
			decision.IdleFor.Seconds(),
			wakeAt,
			decision.Action,
		); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error().Err(rbErr).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	logger.Debug().Int("records", len(r.buffer)).Msg("Flushed decisions to database")
	r.buffer = r.buffer[:0]

	return nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}

	return 0
}
