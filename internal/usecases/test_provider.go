package usecases

import (
	"context"

	"pubspy/internal/domain"
	"pubspy/pkg/log"
)

// TestProviderUseCase reports whether the search provider is configured and answering.
type TestProviderUseCase struct {
	search SearchProvider
}

// NewTestProviderUseCase creates a new TestProviderUseCase.
func NewTestProviderUseCase(search SearchProvider) *TestProviderUseCase {
	return &TestProviderUseCase{search: search}
}

// Execute runs the provider probe. Failures are reported in the diagnostics, never returned.
func (uc *TestProviderUseCase) Execute(ctx context.Context) domain.ProviderDiagnostics {
	diag := uc.search.Probe(ctx)
	if diag.Success {
		log.GlobalInfoCtx(ctx, "search provider healthy", "items", diag.ResponseItems, "latency_ms", diag.Latency.Milliseconds())
	} else {
		log.GlobalWarnCtx(ctx, "search provider check failed", "status", diag.Status, "error", diag.Error)
	}
	return diag
}
