package entitlement

import (
	"context"
	"fmt"

	"github.com/campushr/campushr/internal/directory"
)

// ConfigSource yields the active rule set the resolver matches against.
type ConfigSource interface {
	ListActive(ctx context.Context) ([]Config, error)
}

// Resolver maps a teacher classification to its leave entitlement.
// Resolution is deterministic for identical inputs and has no side
// effects: the balance ledger recomputes availability from it on every
// read instead of trusting a stored allowance.
type Resolver struct {
	source   ConfigSource
	defaults Defaults
}

// NewResolver constructs a Resolver.
func NewResolver(source ConfigSource, defaults Defaults) *Resolver {
	return &Resolver{source: source, defaults: defaults}
}

// Resolve returns the allowance and renewal cadence for a
// classification. An exact (category, contract) rule wins; otherwise
// the configured default for the contract kind applies.
func (r *Resolver) Resolve(ctx context.Context, class directory.Classification) (Entitlement, error) {
	configs, err := r.source.ListActive(ctx)
	if err != nil {
		return Entitlement{}, fmt.Errorf("entitlement: load configs: %w", err)
	}

	for _, cfg := range configs {
		if cfg.Category == class.Category && cfg.Contract == class.Contract {
			return Entitlement{Allowance: cfg.Allowance, Renewal: cfg.Renewal}, nil
		}
	}

	return r.defaultFor(class.Contract), nil
}

func (r *Resolver) defaultFor(contract directory.ContractKind) Entitlement {
	if contract == directory.ContractAnnual {
		return Entitlement{Allowance: r.defaults.AnnualAllowance, Renewal: CadencePeriod}
	}
	return Entitlement{Allowance: r.defaults.TermAllowance, Renewal: CadenceMonthly}
}
