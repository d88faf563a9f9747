package profesionales

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
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
	return NewService(api, zerolog.Nop(), 10)
}

func TestMapProfessionals_ActivoShapes(t *testing.T) {
	got := MapProfessionals([]map[string]any{
		{"id": float64(1), "nombre": "Dra. Pinto", "especialidad": "Dermatología", "activo": true},
		{"profesional_id": "2", "profesional_nombre": "Dr. Vélez", "specialty": "Cardiología", "activo": "true"},
		{"id": float64(3), "nombre": "Dr. Ruiz", "especialidad": "Pediatría"},
	})
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if !got[0].Activo || got[0].Nombre != "Dra. Pinto" {
		t.Errorf("row = %+v", got[0])
	}
	if got[1].ID != 2 || !got[1].Activo || got[1].Especialidad != "Cardiología" {
		t.Errorf("string-flag row = %+v", got[1])
	}
	if got[2].Activo {
		t.Error("missing flag must default to inactive")
	}
}

func TestService_ActivoFilterResetsPage(t *testing.T) {
	var lastQuery atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("GET /profesionales", func(w http.ResponseWriter, r *http.Request) {
		lastQuery.Store(r.URL.Query())
		w.Write([]byte(`{
			"success": true, "data": [],
			"meta": {"current_page": 1, "last_page": 4, "per_page": 10, "total": 40}
		}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	if err := svc.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if err := svc.GoTo(ctx, 3); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetActivo(ctx, "true"); err != nil {
		t.Fatal(err)
	}
	q := lastQuery.Load().(url.Values)
	if got := q.Get("activo"); got != "true" {
		t.Errorf("activo param = %q", got)
	}
	if got := q.Get("page"); got != "1" {
		t.Errorf("page param = %q, want reset to 1", got)
	}
}

func TestService_ToggleSendsStringFlag(t *testing.T) {
	var body atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("GET /profesionales", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": true, "data": []}`))
	})
	mux.HandleFunc("PUT /profesionales/7", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body.Store(raw)
		w.Write([]byte(`{"success": true}`))
	})
	svc := newService(t, mux)

	if err := svc.ToggleActivo(context.Background(), Professional{ID: 7, Activo: true}); err != nil {
		t.Fatal(err)
	}
	var sent map[string]any
	if err := json.Unmarshal(body.Load().([]byte), &sent); err != nil {
		t.Fatal(err)
	}
	if sent["activo"] != "false" {
		t.Errorf(`activo = %v (%T), want the string "false"`, sent["activo"], sent["activo"])
	}
}

func TestService_ToggleFailureKeepsState(t *testing.T) {
	var lists atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /profesionales", func(w http.ResponseWriter, _ *http.Request) {
		lists.Add(1)
		w.Write([]byte(`{"success": true, "data": [{"id": 7, "nombre": "Dra. Pinto", "especialidad": "X", "activo": true}]}`))
	})
	mux.HandleFunc("PUT /profesionales/7", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "mensaje": "flag inválido"}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	if err := svc.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	fetches := lists.Load()

	err := svc.ToggleActivo(ctx, Professional{ID: 7, Activo: true})
	if !rest.IsValidation(err) {
		t.Fatalf("err = %v", err)
	}
	if lists.Load() != fetches {
		t.Error("failed toggle must not reload")
	}
	if items := svc.Items(); len(items) != 1 || !items[0].Activo {
		t.Error("failed toggle must leave the row untouched")
	}
	if svc.Busy(7) {
		t.Error("busy marker not cleared")
	}
}
