package mensajes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/adalberto1996/citas-hsc/internal/platform/live"
	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
)

func newService(t *testing.T, mux *http.ServeMux) *Service {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	api, err := rest.NewClient(srv.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(api, zerolog.Nop())
}

func contactsHandler(calls *atomic.Int64) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if calls != nil {
			calls.Add(1)
		}
		w.Write([]byte(`{
			"success": true,
			"data": {"contactos": [
				{"telefono": "3001234567", "nombre_completo": "Ana Gómez", "ultimo_mensaje": "hola", "mensajes_sin_leer": 2},
				{"telefono": "3119999999", "nombre_completo": "Luis Mora", "ultimo_mensaje": "ok", "mensajes_sin_leer": 0}
			]}
		}`))
	}
}

func TestService_ContactsNestedUnderData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /mensajes/contactos", contactsHandler(nil))
	svc := newService(t, mux)

	if err := svc.ReloadContacts(context.Background()); err != nil {
		t.Fatal(err)
	}
	got := svc.Contacts()
	if len(got) != 2 || got[0].Telefono != "3001234567" || got[0].SinLeer != 2 {
		t.Fatalf("contacts = %+v", got)
	}

	filtered := svc.FilterContacts("ana")
	if len(filtered) != 1 || filtered[0].NombreCompleto != "Ana Gómez" {
		t.Errorf("filtered = %+v", filtered)
	}
	if byPhone := svc.FilterContacts("311"); len(byPhone) != 1 || byPhone[0].Telefono != "3119999999" {
		t.Errorf("phone filter = %+v", byPhone)
	}
}

func TestService_ConversationFromLegacyTopLevelField(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /mensajes/conversacion/3001234567", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"mensajes": [
				{"id_mensaje": 1, "telefono": "3001234567", "mensaje": "hola", "tipo": "ENTRADA", "leido": true},
				{"id_mensaje": 2, "telefono": "3001234567", "mensaje": "buenos días", "tipo": "SALIDA", "leido": true}
			]
		}`))
	})
	svc := newService(t, mux)

	if err := svc.OpenConversation(context.Background(), "3001234567"); err != nil {
		t.Fatal(err)
	}
	msgs := svc.Conversation()
	if len(msgs) != 2 || msgs[0].Texto != "hola" || msgs[1].Tipo != TipoSalida {
		t.Fatalf("conversation = %+v", msgs)
	}
	if svc.Open() != "3001234567" {
		t.Errorf("open = %q", svc.Open())
	}
}

func TestService_SendAppendsLocallyAndReloadsContacts(t *testing.T) {
	var contactLoads, sends atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /mensajes/contactos", contactsHandler(&contactLoads))
	mux.HandleFunc("GET /mensajes/conversacion/3001234567", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": true, "mensajes": []}`))
	})
	mux.HandleFunc("POST /whatsapp/enviar-mensaje", func(w http.ResponseWriter, _ *http.Request) {
		sends.Add(1)
		w.Write([]byte(`{"success": true}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	if err := svc.OpenConversation(ctx, "3001234567"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Send(ctx, "su cita es mañana"); err != nil {
		t.Fatal(err)
	}
	if sends.Load() != 1 {
		t.Error("send endpoint not hit")
	}
	msgs := svc.Conversation()
	if len(msgs) != 1 || msgs[0].Tipo != TipoSalida || msgs[0].Texto != "su cita es mañana" {
		t.Errorf("conversation after send = %+v", msgs)
	}
	if contactLoads.Load() != 1 {
		t.Error("send success must reload contacts")
	}
}

func TestService_SendWithoutOpenConversationRejected(t *testing.T) {
	var sends atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("POST /whatsapp/enviar-mensaje", func(w http.ResponseWriter, _ *http.Request) {
		sends.Add(1)
		w.Write([]byte(`{"success": true}`))
	})
	svc := newService(t, mux)

	if err := svc.Send(context.Background(), "hola"); err == nil {
		t.Fatal("send without open conversation accepted")
	}
	svc.mu.Lock()
	svc.telefono = "300"
	svc.mu.Unlock()
	if err := svc.Send(context.Background(), ""); err == nil {
		t.Fatal("empty message accepted")
	}
	if sends.Load() != 0 {
		t.Error("invalid send reached the server")
	}
}

func TestService_TemplatesNestedAndGrouped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /mensajes/plantillas", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"data": {"plantillas": [
				{"id_plantilla": 1, "nombre": "Recordatorio", "mensaje": "Su cita es el...", "categoria": "citas"},
				{"id_plantilla": 2, "nombre": "Bienvenida", "mensaje": "Hola...", "categoria": "general"},
				{"id_plantilla": 3, "nombre": "Confirmación", "mensaje": "Confirmamos...", "categoria": "citas"}
			]}
		}`))
	})
	svc := newService(t, mux)

	ts, err := svc.Templates(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ts) != 3 {
		t.Fatalf("templates = %d", len(ts))
	}
	order, groups := ByCategory(ts)
	if len(order) != 2 || order[0] != "citas" || order[1] != "general" {
		t.Errorf("category order = %v", order)
	}
	if len(groups["citas"]) != 2 || groups["citas"][1].Nombre != "Confirmación" {
		t.Errorf("citas group = %+v", groups["citas"])
	}
}

func TestService_LiveEventAppendsOnlyToOpenConversation(t *testing.T) {
	var contactLoads atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /mensajes/contactos", contactsHandler(&contactLoads))
	mux.HandleFunc("GET /mensajes/conversacion/3001234567", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": true, "mensajes": []}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	if err := svc.OpenConversation(ctx, "3001234567"); err != nil {
		t.Fatal(err)
	}

	svc.HandleLiveEvent(ctx, live.Event{Name: "nuevo-mensaje", Payload: map[string]any{
		"id_mensaje": float64(9), "telefono": "3001234567", "mensaje": "llegué", "tipo": "ENTRADA",
	}})
	if msgs := svc.Conversation(); len(msgs) != 1 || msgs[0].Texto != "llegué" {
		t.Fatalf("conversation = %+v", msgs)
	}

	svc.HandleLiveEvent(ctx, live.Event{Name: "nuevo-mensaje", Payload: map[string]any{
		"telefono": "3119999999", "mensaje": "otro chat",
	}})
	if msgs := svc.Conversation(); len(msgs) != 1 {
		t.Error("message for another conversation must not append")
	}

	svc.HandleLiveEvent(ctx, live.Event{Name: "otro-evento", Payload: map[string]any{
		"telefono": "3001234567", "mensaje": "ignorado",
	}})
	if msgs := svc.Conversation(); len(msgs) != 1 {
		t.Error("unrelated event must be ignored")
	}

	// Both matching and non-matching nuevo-mensaje events refresh
	// contacts; the unrelated event does not.
	if contactLoads.Load() != 2 {
		t.Errorf("contact reloads = %d, want 2", contactLoads.Load())
	}
}

func TestService_ReloadSupersedesLocalAppend(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /mensajes/conversacion/300", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": true, "mensajes": [{"id_mensaje": 1, "telefono": "300", "mensaje": "servidor"}]}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	if err := svc.OpenConversation(ctx, "300"); err != nil {
		t.Fatal(err)
	}
	svc.conversation.Append(Message{Telefono: "300", Texto: "local", Tipo: TipoSalida})
	if len(svc.Conversation()) != 2 {
		t.Fatal("append missing")
	}

	if err := svc.OpenConversation(ctx, "300"); err != nil {
		t.Fatal(err)
	}
	msgs := svc.Conversation()
	if len(msgs) != 1 || msgs[0].Texto != "servidor" {
		t.Errorf("reload must be authoritative, got %+v", msgs)
	}
}
