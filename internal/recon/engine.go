package recon

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/nuptio/nuptio-backend/pkg/logger"
)

// Engine runs both reconciliation phases in order. The operator trigger and
// the scheduled worker share it.
type Engine struct {
	logg            *logger.Logger
	partialRecovery *PartialRecovery
	balanceSweep    *BalanceSweep
}

// NewEngine builds the engine from its two phases.
func NewEngine(logg *logger.Logger, partialRecovery *PartialRecovery, balanceSweep *BalanceSweep) (*Engine, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if partialRecovery == nil {
		return nil, fmt.Errorf("partial recovery phase required")
	}
	if balanceSweep == nil {
		return nil, fmt.Errorf("balance sweep phase required")
	}
	return &Engine{
		logg:            logg,
		partialRecovery: partialRecovery,
		balanceSweep:    balanceSweep,
	}, nil
}

// Run executes Phase A then Phase B. Phase errors are aggregated, not fatal:
// a failing row in one phase never blocks the other.
func (e *Engine) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary
	var errs error

	partial, err := e.partialRecovery.Run(ctx)
	summary.PartialRecovery = partial
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("partial recovery: %w", err))
	}

	sweep, err := e.balanceSweep.Run(ctx)
	summary.BalanceSweep = sweep
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("balance sweep: %w", err))
	}

	return summary, errs
}
