// Package pacientes manages the patient registry list: paginated
// listing, debounced search, CRUD commands and the bulk CSV upload.
package pacientes

import (
	"strconv"

	"github.com/adalberto1996/citas-hsc/pkg/listview"
	"github.com/adalberto1996/citas-hsc/pkg/resolve"
)

// Patient is the canonical row of the patient list.
type Patient struct {
	ID                   int
	TipoIdentificacion   string
	NumeroIdentificacion string
	NombreCompleto       string
	EPS                  string
	Sexo                 string
	Celular              string
	FechaNacimiento      string
	Direccion            string
	Ciudad               string
	Edad                 int
	Regimen              string
	CreatedAt            string
}

// MapPatients maps raw registry records to canonical rows, length and
// order preserving.
func MapPatients(recs []map[string]any) []Patient {
	out := make([]Patient, len(recs))
	for i, rec := range recs {
		out[i] = mapPatient(rec)
	}
	return out
}

func mapPatient(rec map[string]any) Patient {
	nombre := resolve.JoinNonEmpty(rec, []string{
		"primer_nombre", "segundo_nombre", "primer_apellido", "segundo_apellido",
	}, " ")
	if nombre == "" {
		nombre = resolve.First(rec, []string{"nombre", "paciente_nombre"}, resolve.Fallback)
	}

	return Patient{
		ID:                 resolve.IntOr(rec, []string{"id", "paciente_id"}, 0),
		TipoIdentificacion: resolve.First(rec, []string{"tipo_identificacion"}, ""),
		NumeroIdentificacion: resolve.First(rec, []string{
			"numero_identificacion", "documento", "numero_documento",
		}, resolve.Fallback),
		NombreCompleto:  nombre,
		EPS:             resolve.First(rec, []string{"eps"}, ""),
		Sexo:            resolve.First(rec, []string{"sexo"}, ""),
		Celular:         resolve.First(rec, []string{"celularpal", "telefono"}, ""),
		FechaNacimiento: datePartOrEmpty(resolve.First(rec, []string{"fecha_nacimiento"}, "")),
		Direccion:       resolve.First(rec, []string{"direccion"}, ""),
		Ciudad:          resolve.First(rec, []string{"ciudad"}, ""),
		Edad:            resolve.IntOr(rec, []string{"edad"}, -1),
		Regimen:         resolve.First(rec, []string{"regimen"}, ""),
		CreatedAt:       resolve.First(rec, []string{"created_at"}, ""),
	}
}

func datePartOrEmpty(s string) string {
	if s == "" {
		return ""
	}
	return resolve.DatePart(s)
}

// Matches is the free-text search predicate.
func (p Patient) Matches(query string) bool {
	return listview.MatchQuery(query, p.NumeroIdentificacion, p.NombreCompleto, p.EPS)
}

// Columns builds the patient column set.
func Columns() (*listview.ColumnSet[Patient], error) {
	orDash := func(s string) string {
		if s == "" {
			return resolve.Fallback
		}
		return s
	}
	base := []listview.Column[Patient]{
		{Key: "numero_identificacion", Label: "Documento", Value: func(p Patient) string { return p.NumeroIdentificacion }},
		{Key: "nombre_completo", Label: "Nombre", Value: func(p Patient) string { return p.NombreCompleto }},
		{Key: "eps", Label: "EPS", Value: func(p Patient) string { return orDash(p.EPS) }},
		{Key: "celularpal", Label: "Celular", Value: func(p Patient) string { return orDash(p.Celular) }},
	}
	optional := []listview.Column[Patient]{
		{Key: "sexo", Label: "Sexo", Value: func(p Patient) string { return orDash(p.Sexo) }},
		{Key: "fecha_nacimiento", Label: "Nacimiento", Value: func(p Patient) string { return orDash(p.FechaNacimiento) }},
		{Key: "ciudad", Label: "Ciudad", Value: func(p Patient) string { return orDash(p.Ciudad) }},
		{Key: "edad", Label: "Edad", Value: func(p Patient) string {
			if p.Edad < 0 {
				return resolve.Fallback
			}
			return strconv.Itoa(p.Edad)
		}},
		{Key: "regimen", Label: "Régimen", Value: func(p Patient) string { return orDash(p.Regimen) }},
	}
	return listview.NewColumnSet(base, optional)
}
