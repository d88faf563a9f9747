// Package solicitudes manages the pending appointment requests queue:
// patients asking for a cita over WhatsApp land here until an operator
// resolves them, optionally linking the cita that was created.
package solicitudes

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
	"github.com/adalberto1996/citas-hsc/pkg/listview"
	"github.com/adalberto1996/citas-hsc/pkg/resolve"
)

// Request states.
const (
	EstadoPendiente = "pendiente"
	EstadoAtendida  = "atendida"
	EstadoRechazada = "rechazada"
)

// Request is one pending appointment request.
type Request struct {
	ID       int
	Telefono string
	Mensaje  string
	Fecha    string
	Estado   string
}

// MapRequests maps raw queue records, length and order preserving.
func MapRequests(recs []map[string]any) []Request {
	out := make([]Request, len(recs))
	for i, rec := range recs {
		out[i] = Request{
			ID:       resolve.IntOr(rec, []string{"id_solicitud", "id"}, 0),
			Telefono: resolve.First(rec, []string{"telefono"}, ""),
			Mensaje:  resolve.First(rec, []string{"mensaje"}, ""),
			Fecha:    resolve.First(rec, []string{"fecha_solicitud", "created_at"}, ""),
			Estado:   resolve.First(rec, []string{"estado"}, EstadoPendiente),
		}
	}
	return out
}

// StatusUpdate is the resolve-command input. IDCita links the created
// appointment when the request was fulfilled.
type StatusUpdate struct {
	Estado string `json:"estado" validate:"required,oneof=pendiente atendida rechazada"`
	IDCita int    `json:"id_cita,omitempty"`
}

// Service owns the request queue state.
type Service struct {
	api      *rest.Client
	log      zerolog.Logger
	store    listview.Store[Request]
	busy     *listview.BusySet
	validate *validator.Validate
}

// NewService wires the request queue service.
func NewService(api *rest.Client, log zerolog.Logger) *Service {
	return &Service{
		api:      api,
		log:      log.With().Str("component", "solicitudes").Logger(),
		busy:     listview.NewBusySet(),
		validate: validator.New(),
	}
}

// Reload refetches the pending queue. The batch arrives in the legacy
// top-level solicitudes field.
func (s *Service) Reload(ctx context.Context) error {
	seq := s.store.Begin()
	env, err := s.api.Get(ctx, "/solicitudes/pendientes", nil)
	if err != nil {
		return fmt.Errorf("solicitudes pendientes: %w", err)
	}
	s.store.Apply(seq, MapRequests(env.ListRecords()))
	return nil
}

// Items returns the loaded queue.
func (s *Service) Items() []Request { return s.store.Items() }

// Pending returns the number of loaded pending requests.
func (s *Service) Pending() int { return s.store.Len() }

// Busy reports whether a command for the request is in flight.
func (s *Service) Busy(id int) bool { return s.busy.Busy(id) }

// UpdateStatus resolves one request under its busy marker and reloads
// the queue on success.
func (s *Service) UpdateStatus(ctx context.Context, id int, in StatusUpdate) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("solicitud %d: %w", id, err)
	}
	if err := s.busy.Acquire(id); err != nil {
		return err
	}
	defer s.busy.Release(id)

	if _, err := s.api.Put(ctx, fmt.Sprintf("/solicitudes/%d/estado", id), in); err != nil {
		s.log.Warn().Err(err).Int("id", id).Msg("status update failed")
		return fmt.Errorf("solicitud %d: %w", id, err)
	}
	s.log.Info().Int("id", id).Str("estado", in.Estado).Int("id_cita", in.IDCita).Msg("solicitud resuelta")
	return s.Reload(ctx)
}
