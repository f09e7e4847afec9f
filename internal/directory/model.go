// Package directory exposes read-only teacher classification data to
// the leave engine. Free-text labels from the staff records are parsed
// into closed enumerations here, at the boundary, so business logic
// never compares raw strings.
package directory

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category enumerates staff categories.
type Category string

const (
	CategoryTeacher        Category = "teacher"
	CategoryCollaborator   Category = "collaborator"
	CategoryAdministrative Category = "administrative"
)

// ContractKind enumerates contract renewal schemes.
type ContractKind string

const (
	// ContractAnnual runs for the full administrative period.
	ContractAnnual ContractKind = "annual"
	// ContractTerm runs per academic term with monthly-resetting leave.
	ContractTerm ContractKind = "term"
)

// Teacher is a directory record.
type Teacher struct {
	ID        int64
	FirstName string
	LastName  string
	Email     string
	Category  Category
	Contract  ContractKind
	BirthDate *time.Time
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Classification is the read model consumed by the entitlement resolver.
type Classification struct {
	TeacherID int64
	Category  Category
	Contract  ContractKind
	Active    bool
	BirthDate *time.Time
}

var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, trims and strips diacritics from a label so
// "Cuatrimestral" and "cuatrimestral " compare equal.
func Normalize(label string) string {
	folded, _, err := transform.String(foldDiacritics, label)
	if err != nil {
		folded = label
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// ParseCategory maps a free-text staff category label onto the closed
// enumeration. Unknown labels fall back to collaborator, matching the
// portal's historical behaviour.
func ParseCategory(label string) Category {
	switch Normalize(label) {
	case "docente", "teacher", "profesor":
		return CategoryTeacher
	case "administrativo", "administrative", "admin":
		return CategoryAdministrative
	case "colaborador", "collaborator":
		return CategoryCollaborator
	default:
		return CategoryCollaborator
	}
}

// ParseContractKind maps a free-text contract label onto the closed
// enumeration. Labels are matched by substring because the staff
// records mix forms like "Contrato Anual" and "anual". Unknown labels
// fall back to term.
func ParseContractKind(label string) ContractKind {
	normalized := Normalize(label)
	switch {
	case strings.Contains(normalized, "anual"), strings.Contains(normalized, "annual"):
		return ContractAnnual
	case strings.Contains(normalized, "cuatrimestral"), strings.Contains(normalized, "term"):
		return ContractTerm
	default:
		return ContractTerm
	}
}
