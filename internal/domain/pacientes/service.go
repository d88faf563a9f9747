package pacientes

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
	"github.com/adalberto1996/citas-hsc/pkg/listview"
)

// PatientInput is the create/update command input.
type PatientInput struct {
	TipoIdentificacion   string `json:"tipo_identificacion" validate:"required"`
	NumeroIdentificacion string `json:"numero_identificacion" validate:"required,numeric,min=6,max=12"`
	PrimerNombre         string `json:"primer_nombre" validate:"required"`
	SegundoNombre        string `json:"segundo_nombre,omitempty"`
	PrimerApellido       string `json:"primer_apellido" validate:"required"`
	SegundoApellido      string `json:"segundo_apellido,omitempty"`
	EPS                  string `json:"eps,omitempty"`
	Sexo                 string `json:"sexo,omitempty"`
	Celular              string `json:"celularpal,omitempty"`
	FechaNacimiento      string `json:"fecha_nacimiento,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Direccion            string `json:"direccion,omitempty"`
	Ciudad               string `json:"ciudad,omitempty"`
	Regimen              string `json:"regimen,omitempty"`
}

// Service owns the patient list state and its commands.
type Service struct {
	api      *rest.Client
	log      zerolog.Logger
	ctrl     *listview.Controller[Patient]
	busy     *listview.BusySet
	search   *listview.DebouncedFilter
	validate *validator.Validate
}

// NewService wires the patient service.
func NewService(api *rest.Client, log zerolog.Logger, perPage int, debounce time.Duration) *Service {
	s := &Service{
		api:      api,
		log:      log.With().Str("component", "pacientes").Logger(),
		busy:     listview.NewBusySet(),
		validate: validator.New(),
	}
	s.ctrl = listview.NewController(listview.NewPages(perPage), s.fetch)
	s.search = listview.NewDebouncedFilter(debounce, nil)
	return s
}

func (s *Service) fetch(ctx context.Context, page, perPage int, filters map[string]string) ([]Patient, *listview.Meta, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	for k, v := range filters {
		q.Set(k, v)
	}

	env, err := s.api.Get(ctx, "/pacientes", q)
	if err != nil {
		return nil, nil, fmt.Errorf("list pacientes: %w", err)
	}
	return MapPatients(env.Records()), env.Meta, nil
}

// Reload refetches the current page.
func (s *Service) Reload(ctx context.Context) error { return s.ctrl.Reload(ctx) }

// GoTo navigates to page n.
func (s *Service) GoTo(ctx context.Context, n int) error { return s.ctrl.GoTo(ctx, n) }

// Pages exposes pagination state.
func (s *Service) Pages() *listview.Pages { return s.ctrl.Pages() }

// Items returns the loaded page unfiltered.
func (s *Service) Items() []Patient { return s.ctrl.Items() }

// Busy reports whether a command for the patient is in flight.
func (s *Service) Busy(id int) bool { return s.busy.Busy(id) }

// Search records a free-text query for the local filter.
func (s *Service) Search(q string) { s.search.Update(q) }

// Visible returns the loaded page filtered by the committed query.
func (s *Service) Visible() []Patient {
	q := s.search.Committed()
	items := s.ctrl.Items()
	if q == "" {
		return items
	}
	out := make([]Patient, 0, len(items))
	for _, p := range items {
		if p.Matches(q) {
			out = append(out, p)
		}
	}
	return out
}

// Create validates and registers a patient, then reloads the list.
func (s *Service) Create(ctx context.Context, in PatientInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("create paciente: %w", err)
	}
	if _, err := s.api.Post(ctx, "/pacientes", in); err != nil {
		return fmt.Errorf("create paciente: %w", err)
	}
	s.log.Info().Str("documento", in.NumeroIdentificacion).Msg("paciente creado")
	return s.ctrl.Reload(ctx)
}

// Update validates and updates a patient under its busy marker.
func (s *Service) Update(ctx context.Context, id int, in PatientInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("update paciente %d: %w", id, err)
	}
	return s.command(ctx, id, "update", func() error {
		_, err := s.api.Put(ctx, fmt.Sprintf("/pacientes/%d", id), in)
		return err
	})
}

// Delete removes a patient under its busy marker.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.command(ctx, id, "delete", func() error {
		_, err := s.api.Delete(ctx, fmt.Sprintf("/pacientes/%d", id))
		return err
	})
}

func (s *Service) command(ctx context.Context, id int, name string, call func() error) error {
	if err := s.busy.Acquire(id); err != nil {
		return err
	}
	defer s.busy.Release(id)

	if err := call(); err != nil {
		s.log.Warn().Err(err).Int("id", id).Str("command", name).Msg("command failed")
		return fmt.Errorf("%s paciente %d: %w", name, id, err)
	}
	return s.ctrl.Reload(ctx)
}

// Upload forwards a bulk registry file. The content is opaque here;
// parsing and row validation happen server-side. The list reloads on
// success to pick up the imported rows.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	env, err := s.api.PostMultipart(ctx, "/pacientes/upload", "file", filename, r)
	if err != nil {
		return "", fmt.Errorf("upload pacientes: %w", err)
	}
	s.log.Info().Str("file", filename).Str("mensaje", env.Mensaje).Msg("carga masiva")
	if err := s.ctrl.Reload(ctx); err != nil {
		return env.Mensaje, err
	}
	return env.Mensaje, nil
}

// Close releases the debounce timer.
func (s *Service) Close() { s.search.Close() }
