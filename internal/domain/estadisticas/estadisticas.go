// Package estadisticas builds the dashboard counters. Each number is a
// cheap count probe: a per_page=1 list request whose meta.total carries
// the count, with the batch length as fallback when the server omits
// the block. A failed probe contributes 0 so one broken endpoint never
// blanks the whole dashboard.
package estadisticas

import (
	"context"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
	"github.com/adalberto1996/citas-hsc/pkg/resolve"
)

// Stats are the dashboard counters. CitasHoy/Semana count by creation
// date, AtencionHoy/Semana by scheduled date.
type Stats struct {
	CitasHoy              int
	CitasSemana           int
	CitasAtencionHoy      int
	CitasAtencionSemana   int
	MensajesHoy           int
	SolicitudesPendientes int
	TotalPacientes        int
}

// Service computes the dashboard.
type Service struct {
	api *rest.Client
	log zerolog.Logger
	now func() time.Time
}

// NewService wires the dashboard service.
func NewService(api *rest.Client, log zerolog.Logger) *Service {
	return &Service{
		api: api,
		log: log.With().Str("component", "estadisticas").Logger(),
		now: time.Now,
	}
}

// Load computes all counters for the current day and week (Monday
// start).
func (s *Service) Load(ctx context.Context) Stats {
	today := s.now()
	monday := startOfWeek(today)
	sunday := monday.AddDate(0, 0, 6)

	return Stats{
		CitasHoy:              s.countCitasCreated(ctx, today, today),
		CitasSemana:           s.countCitasCreated(ctx, monday, sunday),
		CitasAtencionHoy:      s.countProbe(ctx, "/citas", scheduledRange(today, today)),
		CitasAtencionSemana:   s.countProbe(ctx, "/citas", scheduledRange(monday, sunday)),
		MensajesHoy:           s.mensajesHoy(ctx),
		SolicitudesPendientes: s.solicitudesPendientes(ctx),
		TotalPacientes:        s.countProbe(ctx, "/pacientes", url.Values{}),
	}
}

// countCitasCreated counts appointments by creation date, retrying with
// the scheduled-date params on backends without created_from/created_to.
func (s *Service) countCitasCreated(ctx context.Context, from, to time.Time) int {
	q := url.Values{}
	q.Set("created_from", day(from))
	q.Set("created_to", day(to))
	if n, ok := s.probe(ctx, "/citas", q); ok {
		return n
	}
	if n, ok := s.probe(ctx, "/citas", scheduledRange(from, to)); ok {
		return n
	}
	return 0
}

func (s *Service) countProbe(ctx context.Context, path string, q url.Values) int {
	n, _ := s.probe(ctx, path, q)
	return n
}

func (s *Service) probe(ctx context.Context, path string, q url.Values) (int, bool) {
	q.Set("page", "1")
	q.Set("per_page", "1")
	env, err := s.api.Get(ctx, path, q)
	if err != nil {
		s.log.Debug().Err(err).Str("path", path).Msg("count probe failed")
		return 0, false
	}
	if env.Meta != nil {
		return env.Meta.Total, true
	}
	return len(env.ListRecords()), true
}

// mensajesHoy reads the daily counter payload, nested under data.hoy.
func (s *Service) mensajesHoy(ctx context.Context) int {
	env, err := s.api.Get(ctx, "/mensajes", nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("mensajes counter failed")
		return 0
	}
	rec := env.Record()
	if rec == nil {
		return 0
	}
	return resolve.IntOr(rec, []string{"hoy"}, 0)
}

func (s *Service) solicitudesPendientes(ctx context.Context) int {
	env, err := s.api.Get(ctx, "/solicitudes/pendientes", nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("solicitudes probe failed")
		return 0
	}
	return len(env.ListRecords())
}

func scheduledRange(from, to time.Time) url.Values {
	q := url.Values{}
	q.Set("from", day(from))
	q.Set("to", day(to))
	return q
}

// startOfWeek returns the Monday of t's week; Sunday counts as the end
// of the previous week.
func startOfWeek(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return t.AddDate(0, 0, -offset)
}

func day(t time.Time) string {
	return t.Format("2006-01-02")
}
