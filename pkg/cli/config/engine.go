package config

import (
	"time"

	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/urfave/cli/v3"
)

// Engine holds CLI flags tuning the ledger use cases
type Engine struct {
	sequenceLockTimeout time.Duration
}

// Flags returns CLI flags for engine configuration
func (x *Engine) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "sequence-lock-timeout",
			Usage:       "Wait for a code counter lock before falling back to a non-sequential code",
			Category:    "Engine",
			Value:       usecase.DefaultSequenceLockTimeout,
			Sources:     cli.EnvVars("RISKLEDGER_SEQUENCE_LOCK_TIMEOUT"),
			Destination: &x.sequenceLockTimeout,
		},
	}
}

// Options returns use case options derived from the flags
func (x *Engine) Options() []usecase.Option {
	return []usecase.Option{
		usecase.WithSequenceLockTimeout(x.sequenceLockTimeout),
	}
}
