package cron

import (
	"context"
	"fmt"

	"github.com/nuptio/nuptio-backend/internal/recon"
	"github.com/nuptio/nuptio-backend/pkg/metrics"
)

// PartialRecoveryJob schedules the partial payment recovery phase.
type PartialRecoveryJob struct {
	phase   *recon.PartialRecovery
	metrics *metrics.ReconJobMetrics
}

// NewPartialRecoveryJob wraps the phase for the job runner.
func NewPartialRecoveryJob(phase *recon.PartialRecovery, m *metrics.ReconJobMetrics) (*PartialRecoveryJob, error) {
	if phase == nil {
		return nil, fmt.Errorf("partial recovery phase required")
	}
	return &PartialRecoveryJob{phase: phase, metrics: m}, nil
}

func (j *PartialRecoveryJob) Name() string { return "partial-payment-recovery" }

func (j *PartialRecoveryJob) Run(ctx context.Context) error {
	summary, err := j.phase.Run(ctx)
	j.metrics.AddRepaired(j.Name(), summary.Repaired)
	return err
}

// BalanceSweepJob schedules the leftover balance sweep phase.
type BalanceSweepJob struct {
	phase   *recon.BalanceSweep
	metrics *metrics.ReconJobMetrics
}

// NewBalanceSweepJob wraps the phase for the job runner.
func NewBalanceSweepJob(phase *recon.BalanceSweep, m *metrics.ReconJobMetrics) (*BalanceSweepJob, error) {
	if phase == nil {
		return nil, fmt.Errorf("balance sweep phase required")
	}
	return &BalanceSweepJob{phase: phase, metrics: m}, nil
}

func (j *BalanceSweepJob) Name() string { return "balance-sweep" }

func (j *BalanceSweepJob) Run(ctx context.Context) error {
	summary, err := j.phase.Run(ctx)
	j.metrics.AddRepaired(j.Name(), summary.Repaired)
	return err
}
