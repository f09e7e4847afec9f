package directory

import "testing"

func TestParseCategory(t *testing.T) {
	cases := map[string]Category{
		"Docente":         CategoryTeacher,
		"docente ":        CategoryTeacher,
		"Profesor":        CategoryTeacher,
		"ADMINISTRATIVO":  CategoryAdministrative,
		"Administrative":  CategoryAdministrative,
		"Colaborador":     CategoryCollaborator,
		"something else":  CategoryCollaborator,
		"":                CategoryCollaborator,
	}
	for label, want := range cases {
		if got := ParseCategory(label); got != want {
			t.Errorf("ParseCategory(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestParseContractKind(t *testing.T) {
	cases := map[string]ContractKind{
		"Contrato Anual": ContractAnnual,
		"anual":          ContractAnnual,
		"Annual":         ContractAnnual,
		"Cuatrimestral":  ContractTerm,
		"term":           ContractTerm,
		"desconocido":    ContractTerm,
	}
	for label, want := range cases {
		if got := ParseContractKind(label); got != want {
			t.Errorf("ParseContractKind(%q) = %q, want %q", label, got, want)
		}
	}
}

func TestNormalizeStripsDiacritics(t *testing.T) {
	cases := map[string]string{
		"Cuatrimestral":  "cuatrimestral",
		" CUATRIMESTRAL": "cuatrimestral",
		"Anuál":          "anual",
		"administración": "administracion",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
