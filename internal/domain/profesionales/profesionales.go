// Package profesionales manages the professional directory: paginated
// listing with the activo filter, create/update and the activo toggle.
// The update endpoint expects the flag serialized as the strings "true"
// and "false", a quirk of the scheduling backend kept on the wire.
package profesionales

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
	"github.com/adalberto1996/citas-hsc/pkg/listview"
	"github.com/adalberto1996/citas-hsc/pkg/resolve"
)

// Professional is the canonical row of the directory list.
type Professional struct {
	ID           int
	Nombre       string
	Especialidad string
	Activo       bool
}

// MapProfessionals maps raw records, length and order preserving.
func MapProfessionals(recs []map[string]any) []Professional {
	out := make([]Professional, len(recs))
	for i, rec := range recs {
		out[i] = Professional{
			ID:           resolve.IntOr(rec, []string{"id", "profesional_id"}, 0),
			Nombre:       resolve.First(rec, []string{"nombre", "profesional_nombre", "name"}, resolve.Fallback),
			Especialidad: resolve.First(rec, []string{"especialidad", "especialidad_nombre", "specialty"}, resolve.Fallback),
			Activo:       resolve.BoolOr(rec, []string{"activo", "active"}, false),
		}
	}
	return out
}

// Columns builds the directory column set.
func Columns() (*listview.ColumnSet[Professional], error) {
	base := []listview.Column[Professional]{
		{Key: "nombre", Label: "Nombre", Value: func(p Professional) string { return p.Nombre }},
		{Key: "especialidad", Label: "Especialidad", Value: func(p Professional) string { return p.Especialidad }},
		{Key: "activo", Label: "Estado", Value: func(p Professional) string {
			if p.Activo {
				return "Activo"
			}
			return "Inactivo"
		}},
	}
	return listview.NewColumnSet(base, nil)
}

// ProfessionalInput is the create command input.
type ProfessionalInput struct {
	Nombre       string `json:"nombre" validate:"required"`
	Especialidad string `json:"especialidad" validate:"required"`
	Activo       bool   `json:"activo"`
}

// Service owns the directory list state and its commands.
type Service struct {
	api      *rest.Client
	log      zerolog.Logger
	ctrl     *listview.Controller[Professional]
	busy     *listview.BusySet
	validate *validator.Validate
}

// NewService wires the professional directory service.
func NewService(api *rest.Client, log zerolog.Logger, perPage int) *Service {
	s := &Service{
		api:      api,
		log:      log.With().Str("component", "profesionales").Logger(),
		busy:     listview.NewBusySet(),
		validate: validator.New(),
	}
	s.ctrl = listview.NewController(listview.NewPages(perPage), s.fetch)
	return s
}

func (s *Service) fetch(ctx context.Context, page, perPage int, filters map[string]string) ([]Professional, *listview.Meta, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	for k, v := range filters {
		q.Set(k, v)
	}

	env, err := s.api.Get(ctx, "/profesionales", q)
	if err != nil {
		return nil, nil, fmt.Errorf("list profesionales: %w", err)
	}
	return MapProfessionals(env.Records()), env.Meta, nil
}

// Reload refetches the current page.
func (s *Service) Reload(ctx context.Context) error { return s.ctrl.Reload(ctx) }

// GoTo navigates to page n.
func (s *Service) GoTo(ctx context.Context, n int) error { return s.ctrl.GoTo(ctx, n) }

// SetActivo filters by the activo flag: "true", "false" or "" to clear.
func (s *Service) SetActivo(ctx context.Context, activo string) error {
	return s.ctrl.SetFilter(ctx, "activo", activo)
}

// Pages exposes pagination state.
func (s *Service) Pages() *listview.Pages { return s.ctrl.Pages() }

// Items returns the loaded page.
func (s *Service) Items() []Professional { return s.ctrl.Items() }

// Busy reports whether a command for the professional is in flight.
func (s *Service) Busy(id int) bool { return s.busy.Busy(id) }

// Create validates and registers a professional, then reloads.
func (s *Service) Create(ctx context.Context, in ProfessionalInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("create profesional: %w", err)
	}
	if _, err := s.api.Post(ctx, "/profesionales", in); err != nil {
		return fmt.Errorf("create profesional: %w", err)
	}
	return s.ctrl.Reload(ctx)
}

// Update changes name and specialty under the busy marker. The activo
// flag travels as a string.
func (s *Service) Update(ctx context.Context, id int, in ProfessionalInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("update profesional %d: %w", id, err)
	}
	body := map[string]any{
		"nombre":       in.Nombre,
		"especialidad": in.Especialidad,
		"activo":       strconv.FormatBool(in.Activo),
	}
	return s.command(ctx, id, "update", body)
}

// ToggleActivo flips the activo flag of one professional.
func (s *Service) ToggleActivo(ctx context.Context, p Professional) error {
	body := map[string]any{"activo": strconv.FormatBool(!p.Activo)}
	return s.command(ctx, p.ID, "toggle", body)
}

func (s *Service) command(ctx context.Context, id int, name string, body map[string]any) error {
	if err := s.busy.Acquire(id); err != nil {
		return err
	}
	defer s.busy.Release(id)

	if _, err := s.api.Put(ctx, fmt.Sprintf("/profesionales/%d", id), body); err != nil {
		s.log.Warn().Err(err).Int("id", id).Str("command", name).Msg("command failed")
		return fmt.Errorf("%s profesional %d: %w", name, id, err)
	}
	return s.ctrl.Reload(ctx)
}
