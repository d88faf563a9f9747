// Package usuarios manages the back-office user accounts: listing with
// the role filter, create/update/delete. The estado column is derived
// client-side when the API sends only the active flag.
package usuarios

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
	"github.com/adalberto1996/citas-hsc/pkg/listview"
	"github.com/adalberto1996/citas-hsc/pkg/resolve"
)

// Derived account states.
const (
	EstadoActivo   = "ACTIVO"
	EstadoInactivo = "INACTIVO"
)

// User is the canonical row of the account list.
type User struct {
	ID             int
	Username       string
	NombreCompleto string
	Rol            string
	Estado         string
	UltimoAcceso   string
}

// MapUsers maps raw account records, length and order preserving.
func MapUsers(recs []map[string]any) []User {
	out := make([]User, len(recs))
	for i, rec := range recs {
		estado := resolve.First(rec, []string{"estado"}, "")
		if estado == "" {
			if resolve.BoolOr(rec, []string{"active"}, true) {
				estado = EstadoActivo
			} else {
				estado = EstadoInactivo
			}
		}
		out[i] = User{
			ID:             resolve.IntOr(rec, []string{"id", "user_id"}, 0),
			Username:       resolve.First(rec, []string{"username", "email"}, ""),
			NombreCompleto: resolve.First(rec, []string{"nombre_completo", "name"}, ""),
			Rol:            strings.ToUpper(resolve.First(rec, []string{"rol", "role"}, "")),
			Estado:         estado,
			UltimoAcceso:   resolve.First(rec, []string{"ultimo_acceso", "last_login"}, ""),
		}
	}
	return out
}

// Columns builds the account column set.
func Columns() (*listview.ColumnSet[User], error) {
	orDash := func(s string) string {
		if s == "" {
			return resolve.Fallback
		}
		return s
	}
	base := []listview.Column[User]{
		{Key: "username", Label: "Usuario", Value: func(u User) string { return orDash(u.Username) }},
		{Key: "nombre_completo", Label: "Nombre", Value: func(u User) string { return orDash(u.NombreCompleto) }},
		{Key: "rol", Label: "Rol", Value: func(u User) string { return orDash(u.Rol) }},
		{Key: "estado", Label: "Estado", Value: func(u User) string { return u.Estado }},
	}
	optional := []listview.Column[User]{
		{Key: "ultimo_acceso", Label: "Último Acceso", Value: func(u User) string { return orDash(resolve.DatePart(u.UltimoAcceso)) }},
	}
	return listview.NewColumnSet(base, optional)
}

// CreateInput is the create command input.
type CreateInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin operador consulta"`
}

// UpdateInput is the update command input; an empty password keeps the
// current one and is omitted from the wire.
type UpdateInput struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin operador consulta"`
}

// Service owns the account list state and its commands.
type Service struct {
	api      *rest.Client
	log      zerolog.Logger
	ctrl     *listview.Controller[User]
	busy     *listview.BusySet
	validate *validator.Validate
}

// NewService wires the account service.
func NewService(api *rest.Client, log zerolog.Logger, perPage int) *Service {
	s := &Service{
		api:      api,
		log:      log.With().Str("component", "usuarios").Logger(),
		busy:     listview.NewBusySet(),
		validate: validator.New(),
	}
	s.ctrl = listview.NewController(listview.NewPages(perPage), s.fetch)
	return s
}

func (s *Service) fetch(ctx context.Context, page, perPage int, filters map[string]string) ([]User, *listview.Meta, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))
	for k, v := range filters {
		q.Set(k, v)
	}

	env, err := s.api.Get(ctx, "/usuarios", q)
	if err != nil {
		return nil, nil, fmt.Errorf("list usuarios: %w", err)
	}
	return MapUsers(env.Records()), env.Meta, nil
}

// Reload refetches the current page.
func (s *Service) Reload(ctx context.Context) error { return s.ctrl.Reload(ctx) }

// GoTo navigates to page n.
func (s *Service) GoTo(ctx context.Context, n int) error { return s.ctrl.GoTo(ctx, n) }

// SetRole filters by role ("" clears).
func (s *Service) SetRole(ctx context.Context, role string) error {
	return s.ctrl.SetFilter(ctx, "role", role)
}

// Pages exposes pagination state.
func (s *Service) Pages() *listview.Pages { return s.ctrl.Pages() }

// Items returns the loaded page.
func (s *Service) Items() []User { return s.ctrl.Items() }

// Busy reports whether a command for the account is in flight.
func (s *Service) Busy(id int) bool { return s.busy.Busy(id) }

// Create validates and registers an account, then reloads.
func (s *Service) Create(ctx context.Context, in CreateInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("create usuario: %w", err)
	}
	if _, err := s.api.Post(ctx, "/usuarios", in); err != nil {
		return fmt.Errorf("create usuario: %w", err)
	}
	s.log.Info().Str("email", in.Email).Str("role", in.Role).Msg("usuario creado")
	return s.ctrl.Reload(ctx)
}

// Update changes an account under its busy marker.
func (s *Service) Update(ctx context.Context, id int, in UpdateInput) error {
	if err := s.validate.Struct(in); err != nil {
		return fmt.Errorf("update usuario %d: %w", id, err)
	}
	return s.command(ctx, id, "update", func() error {
		_, err := s.api.Put(ctx, fmt.Sprintf("/usuarios/%d", id), in)
		return err
	})
}

// Delete removes an account under its busy marker.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.command(ctx, id, "delete", func() error {
		_, err := s.api.Delete(ctx, fmt.Sprintf("/usuarios/%d", id))
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
		return fmt.Errorf("%s usuario %d: %w", name, id, err)
	}
	return s.ctrl.Reload(ctx)
}
