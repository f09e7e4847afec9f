// Package entitlement resolves how many leave days a teacher
// classification is allowed per period, and on what renewal cadence.
package entitlement

import (
	"time"

	"github.com/campushr/campushr/internal/directory"
)

// Cadence enumerates allowance renewal schemes.
type Cadence string

const (
	// CadencePeriod grants the allowance once per administrative period.
	CadencePeriod Cadence = "period"
	// CadenceMonthly resets the consumed count every calendar month.
	CadenceMonthly Cadence = "monthly"
)

// Config is an administrator-maintained allowance rule keyed by
// (category, contract kind).
type Config struct {
	ID        int64
	Category  directory.Category
	Contract  directory.ContractKind
	Allowance int
	Renewal   Cadence
	Active    bool
	UpdatedAt time.Time
}

// Entitlement is the resolved allowance for one classification.
type Entitlement struct {
	Allowance int
	Renewal   Cadence
}

// Defaults supplies the fallback allowances applied when no explicit
// rule matches a classification. The fallback is keyed by contract
// kind only; the numbers are deployment configuration, not code.
type Defaults struct {
	AnnualAllowance int
	TermAllowance   int
}
