package recon

// PhaseSummary counts the outcome of one reconciliation phase. Counts only;
// per-row detail goes to the logs.
type PhaseSummary struct {
	Processed int `json:"processed"`
	Repaired  int `json:"repaired"`
	Skipped   int `json:"skipped"`
	Errored   int `json:"errored"`
}

// RunSummary aggregates one full reconciliation run.
type RunSummary struct {
	PartialRecovery PhaseSummary `json:"partial_recovery"`
	BalanceSweep    PhaseSummary `json:"balance_sweep"`
}
