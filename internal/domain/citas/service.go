package citas

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
	"github.com/adalberto1996/citas-hsc/pkg/listview"
)

// NewAppointment is the create-command input.
type NewAppointment struct {
	Documento     string `json:"documento" validate:"required,numeric,min=6,max=12"`
	Nombre        string `json:"nombre" validate:"required"`
	Telefono      string `json:"telefono" validate:"required"`
	EPS           string `json:"eps,omitempty"`
	Fecha         string `json:"fecha" validate:"required,datetime=2006-01-02"`
	Hora          string `json:"hora" validate:"required"`
	Especialidad  string `json:"especialidad" validate:"required"`
	Lugar         string `json:"lugar" validate:"required"`
	Doctor        string `json:"doctor,omitempty"`
	Observaciones string `json:"observaciones,omitempty"`
}

// Reschedule is the reschedule-command input.
type Reschedule struct {
	Fecha string `json:"fecha" validate:"required,datetime=2006-01-02"`
	Hora  string `json:"hora" validate:"required"`
}

// Service owns the appointment list state and its commands. Server-side
// filters (estado, from, to) go through the controller; the free-text
// search filters the loaded page locally after the debounce window.
type Service struct {
	api      *rest.Client
	log      zerolog.Logger
	ctrl     *listview.Controller[Appointment]
	busy     *listview.BusySet
	search   *listview.DebouncedFilter
	validate *validator.Validate
}

// NewService wires the appointment service. debounce <= 0 selects the
// default quiet window.
func NewService(api *rest.Client, log zerolog.Logger, perPage int, debounce time.Duration) *Service {
	s := &Service{
		api:      api,
		log:      log.With().Str("component", "citas").Logger(),
		busy:     listview.NewBusySet(),
		validate: validator.New(),
	}
	s.ctrl = listview.NewController(listview.NewPages(perPage), s.fetch)
	s.search = listview.NewDebouncedFilter(debounce, nil)
	return s
}

func (s *Service) fetch(ctx context.Context, page, perPage int, filters map[string]string) ([]Appointment, *listview.Meta, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("include", "paciente,profesional,horario")
	for k, v := range filters {
		q.Set(k, v)
	}

	env, err := s.api.Get(ctx, "/citas", q)
	if err != nil {
		return nil, nil, fmt.Errorf("list citas: %w", err)
	}
	return MapAppointments(env.ListRecords()), env.Meta, nil
}

// Reload refetches the current page.
func (s *Service) Reload(ctx context.Context) error { return s.ctrl.Reload(ctx) }

// GoTo navigates to page n.
func (s *Service) GoTo(ctx context.Context, n int) error { return s.ctrl.GoTo(ctx, n) }

// SetEstado filters by appointment state ("" clears).
func (s *Service) SetEstado(ctx context.Context, estado string) error {
	return s.ctrl.SetFilter(ctx, "estado", estado)
}

// SetDateRange filters by scheduled date range ("" clears a bound).
func (s *Service) SetDateRange(ctx context.Context, from, to string) error {
	if err := s.ctrl.SetFilter(ctx, "from", from); err != nil {
		return err
	}
	return s.ctrl.SetFilter(ctx, "to", to)
}

// Search records a free-text query; it commits after the quiet window
// and applies locally, without a server round-trip.
func (s *Service) Search(q string) { s.search.Update(q) }

// Visible returns the loaded page filtered by the committed search
// query.
func (s *Service) Visible() []Appointment {
	q := s.search.Committed()
	items := s.ctrl.Items()
	if q == "" {
		return items
	}
	out := make([]Appointment, 0, len(items))
	for _, a := range items {
		if a.Matches(q) {
			out = append(out, a)
		}
	}
	return out
}

// Items returns the loaded page unfiltered.
func (s *Service) Items() []Appointment { return s.ctrl.Items() }

// Pages exposes pagination state for rendering.
func (s *Service) Pages() *listview.Pages { return s.ctrl.Pages() }

// Busy reports whether a command for the appointment is in flight.
func (s *Service) Busy(id int) bool { return s.busy.Busy(id) }

// Create validates and creates an appointment, then reloads the list.
func (s *Service) Create(ctx context.Context, in NewAppointment) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("create cita: %w", err)
	}
	env, err := s.api.Post(ctx, "/citas", in)
	if err != nil {
		return fmt.Errorf("create cita: %w", err)
	}
	s.log.Info().Str("mensaje", env.Mensaje).Msg("cita creada")
	return s.ctrl.Reload(ctx)
}

// Confirm confirms the appointment. The list is reloaded only on
// success; on failure the loaded state stays as it was.
func (s *Service) Confirm(ctx context.Context, id int) error {
	return s.command(ctx, id, "confirmar", func() error {
		_, err := s.api.Post(ctx, fmt.Sprintf("/citas/%d/confirmar", id), nil)
		return err
	})
}

// Cancel cancels the appointment.
func (s *Service) Cancel(ctx context.Context, id int) error {
	return s.command(ctx, id, "cancelar", func() error {
		_, err := s.api.Post(ctx, fmt.Sprintf("/citas/%d/cancelar", id), nil)
		return err
	})
}

// RescheduleTo moves the appointment to a new date and hour.
func (s *Service) RescheduleTo(ctx context.Context, id int, in Reschedule) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("reprogramar cita %d: %w", id, err)
	}
	return s.command(ctx, id, "reprogramar", func() error {
		_, err := s.api.Put(ctx, fmt.Sprintf("/citas/%d/reprogramar", id), in)
		return err
	})
}

// command runs one mutating call under the per-item busy marker: a
// second command for the same id is rejected while the first is in
// flight, and a successful outcome triggers a full reload.
func (s *Service) command(ctx context.Context, id int, name string, call func() error) error {
	if err := s.busy.Acquire(id); err != nil {
		return err
	}
	defer s.busy.Release(id)

	if err := call(); err != nil {
		s.log.Warn().Err(err).Int("id", id).Str("command", name).Msg("command failed")
		return fmt.Errorf("%s cita %d: %w", name, id, err)
	}
	s.log.Info().Int("id", id).Str("command", name).Msg("command ok")
	return s.ctrl.Reload(ctx)
}

// Availability lists the open slots for a specialty on a date.
func (s *Service) Availability(ctx context.Context, especialidad, fecha string) ([]Slot, error) {
	if especialidad == "" || fecha == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("especialidad", especialidad)
	q.Set("fecha", fecha)
	q.Set("per_page", "50")

	env, err := s.api.Get(ctx, "/disponibilidad", q)
	if err != nil {
		return nil, fmt.Errorf("disponibilidad: %w", err)
	}
	return MapSlots(env.Records()), nil
}

// Close releases the debounce timer.
func (s *Service) Close() { s.search.Close() }
