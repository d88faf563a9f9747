// Package consulta implements the patient-facing appointment lookup:
// one document number in, the scheduled cita out. The document is
// validated locally before the round-trip.
package consulta

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/domain/citas"
	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
)

// ErrNoCita is returned when no appointment is scheduled for the
// document.
var ErrNoCita = errors.New("no hay cita agendada para este documento")

// ErrBadDocumento is returned for document numbers that cannot be valid.
var ErrBadDocumento = errors.New("documento inválido: se esperan 6 a 12 dígitos")

var documentoRe = regexp.MustCompile(`^\d{6,12}$`)

// Service performs the lookup.
type Service struct {
	api *rest.Client
	log zerolog.Logger
}

// NewService wires the lookup service.
func NewService(api *rest.Client, log zerolog.Logger) *Service {
	return &Service{api: api, log: log.With().Str("component", "consulta").Logger()}
}

// Lookup finds the appointment scheduled for the document. The response
// nests the record under data.cita; a success envelope without one
// means no appointment is scheduled.
func (s *Service) Lookup(ctx context.Context, documento string) (citas.Appointment, error) {
	if !documentoRe.MatchString(documento) {
		return citas.Appointment{}, ErrBadDocumento
	}

	env, err := s.api.Post(ctx, "/citas/consultar", map[string]string{"documento": documento})
	if err != nil {
		if rest.IsNotFound(err) {
			return citas.Appointment{}, ErrNoCita
		}
		return citas.Appointment{}, fmt.Errorf("consultar cita: %w", err)
	}

	rec := env.RecordAt("cita")
	if rec == nil {
		return citas.Appointment{}, ErrNoCita
	}
	mapped := citas.MapAppointments([]map[string]any{rec})
	s.log.Debug().Str("documento", documento).Int("id", mapped[0].ID).Msg("cita encontrada")
	return mapped[0], nil
}
