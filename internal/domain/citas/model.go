// Package citas manages the appointment list: listing with server-side
// estado/date filters, client-side debounced search, and the mutating
// commands (create, confirm, cancel, reschedule) with per-appointment
// busy markers.
package citas

import (
	"github.com/adalberto1996/citas-hsc/pkg/listview"
	"github.com/adalberto1996/citas-hsc/pkg/resolve"
)

// Appointment states as the API reports them.
const (
	EstadoPendiente    = "pendiente"
	EstadoConfirmada   = "confirmada"
	EstadoCancelada    = "cancelada"
	EstadoReprogramada = "reprogramada"
)

// Appointment is the canonical row of the appointment list.
type Appointment struct {
	ID              int
	Fecha           string
	Hora            string
	Estado          string
	NombrePaciente  string
	NumeroDocumento string
	Especialidad    string
	Doctor          string
	TipoAtencion    string
	HoraFin         string
	CanalAgenda     string
	Notas           string
}

// MapAppointments maps raw API records to canonical rows. Output length
// and order match the input; unresolvable records map to rows of
// fallback sentinels rather than being dropped.
func MapAppointments(recs []map[string]any) []Appointment {
	out := make([]Appointment, len(recs))
	for i, rec := range recs {
		out[i] = mapAppointment(rec)
	}
	return out
}

func mapAppointment(rec map[string]any) Appointment {
	nombre := resolve.First(rec, []string{"paciente_nombre", "paciente.nombre"}, "")
	if nombre == "" {
		nombre = resolve.JoinNonEmpty(rec, []string{
			"paciente.primer_nombre",
			"paciente.segundo_nombre",
			"paciente.primer_apellido",
			"paciente.segundo_apellido",
		}, " ")
	}
	if nombre == "" {
		nombre = resolve.Fallback
	}

	return Appointment{
		ID: resolve.IntOr(rec, []string{"id", "id_cita", "appointment_id"}, 0),
		Fecha: resolve.DatePart(resolve.First(rec, []string{
			"fecha", "fecha_cita", "date", "scheduled_date", "horario.fecha",
		}, resolve.Fallback)),
		Hora: resolve.First(rec, []string{
			"hora_inicio", "hora", "hora_cita", "horario.hora_inicio", "time",
		}, resolve.Fallback),
		Estado:         resolve.First(rec, []string{"estado", "status"}, resolve.Fallback),
		NombrePaciente: nombre,
		NumeroDocumento: resolve.First(rec, []string{
			"paciente.numero_identificacion", "numero_documento", "documento", "document",
		}, resolve.Fallback),
		Especialidad: resolve.First(rec, []string{
			"profesional.especialidad", "especialidad", "especialidad_nombre", "specialty",
		}, resolve.Fallback),
		Doctor:       resolve.First(rec, []string{"profesional_nombre", "profesional.nombre"}, resolve.Fallback),
		TipoAtencion: resolve.First(rec, []string{"tipo_atencion", "horario.tipo_atencion"}, resolve.Fallback),
		HoraFin:      resolve.First(rec, []string{"hora_fin", "horario.hora_fin"}, resolve.Fallback),
		CanalAgenda:  resolve.First(rec, []string{"canal_agenda"}, resolve.Fallback),
		Notas:        resolve.First(rec, []string{"notas"}, resolve.Fallback),
	}
}

// Matches is the free-text search predicate over the searchable fields.
func (a Appointment) Matches(query string) bool {
	return listview.MatchQuery(query,
		a.NumeroDocumento, a.NombrePaciente, a.Doctor, a.Especialidad)
}

// Columns builds the appointment column set: the always-on base columns
// plus the toggleable extras.
func Columns() (*listview.ColumnSet[Appointment], error) {
	base := []listview.Column[Appointment]{
		{Key: "fecha", Label: "Fecha", Value: func(a Appointment) string { return a.Fecha }},
		{Key: "hora", Label: "Hora", Value: func(a Appointment) string { return resolve.ClockPart(a.Hora) }},
		{Key: "nombre_paciente", Label: "Paciente", Value: func(a Appointment) string { return a.NombrePaciente }},
		{Key: "numero_documento", Label: "Documento", Value: func(a Appointment) string { return a.NumeroDocumento }},
		{Key: "especialidad", Label: "Especialidad", Value: func(a Appointment) string { return a.Especialidad }},
		{Key: "estado", Label: "Estado", Value: func(a Appointment) string { return a.Estado }},
	}
	optional := []listview.Column[Appointment]{
		{Key: "doctor", Label: "Doctor", Value: func(a Appointment) string { return a.Doctor }},
		{Key: "tipo_atencion", Label: "Tipo Atención", Value: func(a Appointment) string { return a.TipoAtencion }},
		{Key: "hora_fin", Label: "Hora Fin", Value: func(a Appointment) string { return resolve.ClockPart(a.HoraFin) }},
		{Key: "canal_agenda", Label: "Canal", Value: func(a Appointment) string { return a.CanalAgenda }},
		{Key: "notas", Label: "Notas", Value: func(a Appointment) string { return a.Notas }},
	}
	return listview.NewColumnSet(base, optional)
}

// Slot is one availability option for a specialty and date.
type Slot struct {
	Hora string
}

// MapSlots maps raw availability records, resolving the slot hour across
// the shapes different schedule backends emit.
func MapSlots(recs []map[string]any) []Slot {
	out := make([]Slot, len(recs))
	for i, rec := range recs {
		out[i] = Slot{Hora: resolve.First(rec, []string{
			"hora", "hora_inicio", "time", "inicio", "start_time",
		}, "")}
	}
	return out
}
