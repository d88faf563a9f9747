package mensajes

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/platform/live"
	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
	"github.com/adalberto1996/citas-hsc/pkg/listview"
)

// Outgoing is the send command input.
type Outgoing struct {
	Telefono string `json:"telefono" validate:"required"`
	Mensaje  string `json:"mensaje" validate:"required"`
}

// Service owns the messaging state: contacts, the open conversation and
// templates. Both lists live in sequence-gated stores, so a slow reload
// can never overwrite fresher state or a later-selected conversation.
type Service struct {
	api      *rest.Client
	log      zerolog.Logger
	validate *validator.Validate

	contacts     listview.Store[Contact]
	conversation listview.Store[Message]

	mu       sync.Mutex
	telefono string // open conversation, "" when none
	now      func() time.Time
}

// NewService wires the messaging service.
func NewService(api *rest.Client, log zerolog.Logger) *Service {
	return &Service{
		api:      api,
		log:      log.With().Str("component", "mensajes").Logger(),
		validate: validator.New(),
		now:      time.Now,
	}
}

// ReloadContacts refetches the contact list. The payload nests the
// batch under data.contactos.
func (s *Service) ReloadContacts(ctx context.Context) error {
	seq := s.contacts.Begin()
	env, err := s.api.Get(ctx, "/mensajes/contactos", nil)
	if err != nil {
		return fmt.Errorf("contactos: %w", err)
	}
	s.contacts.Apply(seq, MapContacts(env.RecordsAt("contactos")))
	return nil
}

// Contacts returns the loaded contact list.
func (s *Service) Contacts() []Contact { return s.contacts.Items() }

// FilterContacts returns the contacts matching the query.
func (s *Service) FilterContacts(query string) []Contact {
	all := s.contacts.Items()
	if query == "" {
		return all
	}
	out := make([]Contact, 0, len(all))
	for _, c := range all {
		if c.Matches(query) {
			out = append(out, c)
		}
	}
	return out
}

// OpenConversation selects a contact and loads its conversation. The
// batch arrives in the legacy top-level mensajes field.
func (s *Service) OpenConversation(ctx context.Context, telefono string) error {
	s.mu.Lock()
	s.telefono = telefono
	s.mu.Unlock()

	seq := s.conversation.Begin()
	env, err := s.api.Get(ctx, "/mensajes/conversacion/"+telefono, nil)
	if err != nil {
		return fmt.Errorf("conversacion %s: %w", telefono, err)
	}
	s.conversation.Apply(seq, MapMessages(env.ListRecords()))
	return nil
}

// CloseConversation deselects the open contact.
func (s *Service) CloseConversation() {
	s.mu.Lock()
	s.telefono = ""
	s.mu.Unlock()
}

// Open returns the phone of the open conversation, "" when none.
func (s *Service) Open() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telefono
}

// Conversation returns the loaded conversation entries.
func (s *Service) Conversation() []Message { return s.conversation.Items() }

// Send validates and sends a message to the open conversation. On
// success the outgoing entry is appended locally for immediate display
// and the contact list reloads; the next conversation reload is
// authoritative.
func (s *Service) Send(ctx context.Context, texto string) error {
	telefono := s.Open()
	out := Outgoing{Telefono: telefono, Mensaje: texto}
	if err := s.validate.Struct(out); err != nil {
		return fmt.Errorf("enviar mensaje: %w", err)
	}

	if _, err := s.api.Post(ctx, "/whatsapp/enviar-mensaje", out); err != nil {
		return fmt.Errorf("enviar mensaje: %w", err)
	}

	s.conversation.Append(Message{
		Telefono: telefono,
		Texto:    texto,
		Tipo:     TipoSalida,
		Fecha:    s.now().Format(time.RFC3339),
		Leido:    true,
	})
	s.log.Info().Str("telefono", telefono).Msg("mensaje enviado")
	return s.ReloadContacts(ctx)
}

// NotifyAppointment pushes an appointment notification over WhatsApp.
func (s *Service) NotifyAppointment(ctx context.Context, telefono string, cita any) error {
	if telefono == "" {
		return fmt.Errorf("notificar cita: telefono vacío")
	}
	body := map[string]any{"telefono": telefono, "citaInfo": cita}
	if _, err := s.api.Post(ctx, "/whatsapp/notificar-cita", body); err != nil {
		return fmt.Errorf("notificar cita: %w", err)
	}
	return nil
}

// Templates loads the reusable message texts, nested under
// data.plantillas.
func (s *Service) Templates(ctx context.Context) ([]Template, error) {
	env, err := s.api.Get(ctx, "/mensajes/plantillas", nil)
	if err != nil {
		return nil, fmt.Errorf("plantillas: %w", err)
	}
	return MapTemplates(env.RecordsAt("plantillas")), nil
}

// HandleLiveEvent processes one pushed event: a new message matching
// the open conversation is appended immediately, and the contact list
// reloads regardless so counters and previews stay fresh.
func (s *Service) HandleLiveEvent(ctx context.Context, ev live.Event) {
	if ev.Name != "nuevo-mensaje" {
		return
	}
	msg := MapMessage(ev.Payload)
	if open := s.Open(); open != "" && msg.Telefono == open {
		s.conversation.Append(msg)
	}
	if err := s.ReloadContacts(ctx); err != nil {
		s.log.Warn().Err(err).Msg("contact reload after live event failed")
	}
}

// Attach subscribes the service to the push bridge. Events are handled
// off the read loop. The returned id can be passed to bridge.Unsubscribe.
func (s *Service) Attach(ctx context.Context, bridge *live.Bridge) string {
	return bridge.Subscribe(live.ScopeAll, func(ev live.Event) {
		go s.HandleLiveEvent(ctx, ev)
	})
}
