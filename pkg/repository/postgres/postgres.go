package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskledger/pkg/domain/interfaces"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/utils/logging"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	defaultLockTimeout     = 3 * time.Second
	defaultConnectInterval = 500 * time.Millisecond
	defaultConnectTimeout  = 30 * time.Second

	// SQLSTATE codes
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
)

type Postgres struct {
	db             *gorm.DB
	lockTimeout    time.Duration
	connectTimeout time.Duration

	sequence *sequenceRepository
	risk     *riskRepository
	control  *controlRepository
	period   *periodRepository
}

var _ interfaces.Repository = &Postgres{}

type Option func(*Postgres)

// WithLockTimeout sets the row lock wait used when the caller's context has no deadline
func WithLockTimeout(d time.Duration) Option {
	return func(p *Postgres) {
		p.lockTimeout = d
	}
}

// WithConnectTimeout bounds the total time spent retrying the initial connection
func WithConnectTimeout(d time.Duration) Option {
	return func(p *Postgres) {
		p.connectTimeout = d
	}
}

func New(ctx context.Context, dsn string, opts ...Option) (*Postgres, error) {
	p := &Postgres{
		lockTimeout:    defaultLockTimeout,
		connectTimeout: defaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = defaultConnectInterval
	bo.MaxElapsedTime = p.connectTimeout

	var db *gorm.DB
	err := backoff.RetryNotify(func() error {
		conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
			NowFunc:        now,
		})
		if err != nil {
			return err
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		db = conn
		return nil
	}, bo, func(err error, wait time.Duration) {
		logging.From(ctx).Warn("retrying postgres connection", "error", err, "wait", wait)
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to connect to postgres")
	}

	p.db = db
	p.sequence = &sequenceRepository{pg: p}
	p.risk = &riskRepository{pg: p}
	p.control = &controlRepository{pg: p}
	p.period = &periodRepository{pg: p}
	return p, nil
}

// Migrate creates or updates every table and index
func (p *Postgres) Migrate(ctx context.Context) error {
	if err := p.db.WithContext(ctx).AutoMigrate(
		&sequenceRow{},
		&riskRow{},
		&controlRow{},
		&activePeriodRow{},
		&commitRow{},
		&historyRow{},
	); err != nil {
		return goerr.Wrap(err, "failed to migrate postgres schema")
	}
	logging.From(ctx).Info("postgres schema migrated", slog.Int("tables", 6))
	return nil
}

func (p *Postgres) Sequence() interfaces.SequenceRepository {
	return p.sequence
}

func (p *Postgres) Risk() interfaces.RiskRepository {
	return p.risk
}

func (p *Postgres) Control() interfaces.ControlRepository {
	return p.control
}

func (p *Postgres) Period() interfaces.PeriodRepository {
	return p.period
}

func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	sqlDB, err := p.db.DB()
	if err != nil {
		return goerr.Wrap(err, "failed to get sql.DB")
	}
	return sqlDB.Close()
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// transaction runs fn in a transaction whose row lock waits end with the
// context deadline, or with the configured lock timeout without one
func (p *Postgres) transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	timeout := p.lockTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return goerr.Wrap(interfaces.ErrContention, "no time left to take row locks")
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", max(timeout.Milliseconds(), 1))
		if err := tx.Exec(stmt).Error; err != nil {
			return goerr.Wrap(err, "failed to set lock timeout")
		}
		return fn(tx)
	})
}

// translate maps driver errors onto the repository sentinels and keeps
// sentinels raised inside a transaction function intact
func translate(err error, msg string, values ...goerr.Option) error {
	if err == nil {
		return nil
	}
	for _, sentinel := range []error{
		interfaces.ErrNotFound, interfaces.ErrConflict, interfaces.ErrContention,
		interfaces.ErrAlreadyCommitted, model.ErrStalePeriod,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return goerr.Wrap(interfaces.ErrNotFound, msg, values...)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return goerr.Wrap(interfaces.ErrConflict, msg, values...)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return goerr.Wrap(interfaces.ErrContention, msg, append(values, goerr.V("cause", err.Error()))...)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected, codeQueryCanceled:
			return goerr.Wrap(interfaces.ErrContention, msg, append(values, goerr.V("sqlstate", pgErr.Code))...)
		}
	}

	return goerr.Wrap(err, msg, values...)
}
