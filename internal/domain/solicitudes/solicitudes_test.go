package solicitudes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

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

func TestService_ReloadFromLegacyField(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /solicitudes/pendientes", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"solicitudes": [
				{"id_solicitud": 1, "telefono": "300", "mensaje": "quiero una cita", "fecha_solicitud": "2025-08-29T10:00:00"},
				{"id_solicitud": 2, "telefono": "311", "mensaje": "cita pediatría", "estado": "pendiente"}
			]
		}`))
	})
	svc := newService(t, mux)

	if err := svc.Reload(context.Background()); err != nil {
		t.Fatal(err)
	}
	items := svc.Items()
	if len(items) != 2 || items[0].ID != 1 || items[0].Estado != EstadoPendiente {
		t.Fatalf("items = %+v", items)
	}
	if svc.Pending() != 2 {
		t.Errorf("pending = %d", svc.Pending())
	}
}

func TestService_UpdateStatusLinksCita(t *testing.T) {
	var body atomic.Value
	var reloads atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /solicitudes/pendientes", func(w http.ResponseWriter, _ *http.Request) {
		reloads.Add(1)
		w.Write([]byte(`{"success": true, "solicitudes": []}`))
	})
	mux.HandleFunc("PUT /solicitudes/1/estado", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body.Store(raw)
		w.Write([]byte(`{"success": true}`))
	})
	svc := newService(t, mux)

	err := svc.UpdateStatus(context.Background(), 1, StatusUpdate{Estado: EstadoAtendida, IDCita: 77})
	if err != nil {
		t.Fatal(err)
	}
	var sent map[string]any
	if err := json.Unmarshal(body.Load().([]byte), &sent); err != nil {
		t.Fatal(err)
	}
	if sent["estado"] != "atendida" || sent["id_cita"] != float64(77) {
		t.Errorf("sent = %v", sent)
	}
	if reloads.Load() != 1 {
		t.Error("successful resolve must reload the queue")
	}
}

func TestService_UpdateStatusValidation(t *testing.T) {
	var puts atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /solicitudes/1/estado", func(w http.ResponseWriter, _ *http.Request) {
		puts.Add(1)
		w.Write([]byte(`{"success": true}`))
	})
	svc := newService(t, mux)

	if err := svc.UpdateStatus(context.Background(), 1, StatusUpdate{Estado: "cerrada"}); err == nil {
		t.Fatal("unknown estado accepted")
	}
	if puts.Load() != 0 {
		t.Error("invalid input must not reach the server")
	}
}

func TestService_UpdateStatusFailureKeepsQueue(t *testing.T) {
	var reloads atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /solicitudes/pendientes", func(w http.ResponseWriter, _ *http.Request) {
		reloads.Add(1)
		w.Write([]byte(`{"success": true, "solicitudes": [{"id_solicitud": 1, "telefono": "300"}]}`))
	})
	mux.HandleFunc("PUT /solicitudes/1/estado", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"success": false, "mensaje": "ya resuelta"}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	if err := svc.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	before := reloads.Load()

	err := svc.UpdateStatus(ctx, 1, StatusUpdate{Estado: EstadoRechazada})
	if !rest.IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	if reloads.Load() != before {
		t.Error("failed resolve must not reload")
	}
	if svc.Pending() != 1 {
		t.Error("queue must stay untouched on failure")
	}
	if svc.Busy(1) {
		t.Error("busy marker not cleared")
	}
}
