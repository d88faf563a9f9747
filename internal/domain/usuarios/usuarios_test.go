package usuarios

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

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

func TestMapUsers_DerivedFields(t *testing.T) {
	got := MapUsers([]map[string]any{
		{"id": float64(1), "username": "ana", "nombre_completo": "Ana Gómez", "rol": "admin", "estado": EstadoActivo},
		{"user_id": float64(2), "email": "luis@hsc.co", "name": "Luis Mora", "role": "operador", "active": false},
		{"id": float64(3), "email": "eva@hsc.co", "role": "consulta", "last_login": "2025-08-30T09:00:00"},
	})
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Rol != "ADMIN" || got[0].Estado != EstadoActivo {
		t.Errorf("row = %+v", got[0])
	}
	b := got[1]
	if b.ID != 2 || b.Username != "luis@hsc.co" || b.NombreCompleto != "Luis Mora" {
		t.Errorf("aliased row = %+v", b)
	}
	if b.Rol != "OPERADOR" || b.Estado != EstadoInactivo {
		t.Errorf("derived estado = %q, rol = %q", b.Estado, b.Rol)
	}
	c := got[2]
	if c.Estado != EstadoActivo {
		t.Errorf("missing active flag must derive ACTIVO, got %q", c.Estado)
	}
	if c.UltimoAcceso != "2025-08-30T09:00:00" {
		t.Errorf("UltimoAcceso = %q", c.UltimoAcceso)
	}
}

func TestColumns_UltimoAccesoProjectsDatePart(t *testing.T) {
	cols, err := Columns()
	if err != nil {
		t.Fatal(err)
	}
	cols.Toggle("ultimo_acceso", true)
	row := cols.Project(User{Estado: EstadoActivo, UltimoAcceso: "2025-08-30T09:00:00"})
	if row["ultimo_acceso"] != "2025-08-30" {
		t.Errorf("ultimo_acceso = %q", row["ultimo_acceso"])
	}
	row = cols.Project(User{Estado: EstadoActivo})
	if row["ultimo_acceso"] != "-" {
		t.Errorf("missing ultimo_acceso = %q, want sentinel", row["ultimo_acceso"])
	}
}

func TestService_RoleFilterResetsPage(t *testing.T) {
	var lastQuery atomic.Value
	mux := http.NewServeMux()
	mux.HandleFunc("GET /usuarios", func(w http.ResponseWriter, r *http.Request) {
		lastQuery.Store(r.URL.Query())
		w.Write([]byte(`{
			"success": true, "data": [],
			"meta": {"current_page": 1, "last_page": 2, "per_page": 10, "total": 15}
		}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	if err := svc.Reload(ctx); err != nil {
		t.Fatal(err)
	}
	if err := svc.GoTo(ctx, 2); err != nil {
		t.Fatal(err)
	}
	if err := svc.SetRole(ctx, "admin"); err != nil {
		t.Fatal(err)
	}
	q := lastQuery.Load().(url.Values)
	if q.Get("role") != "admin" || q.Get("page") != "1" {
		t.Errorf("params = %v", q)
	}
}

func TestService_CreateValidation(t *testing.T) {
	var posts atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("POST /usuarios", func(w http.ResponseWriter, _ *http.Request) {
		posts.Add(1)
		w.Write([]byte(`{"success": true}`))
	})
	mux.HandleFunc("GET /usuarios", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success": true, "data": []}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	bad := []CreateInput{
		{Name: "Ana", Email: "not-an-email", Password: "secretpass", Role: "admin"},
		{Name: "Ana", Email: "ana@hsc.co", Password: "short", Role: "admin"},
		{Name: "Ana", Email: "ana@hsc.co", Password: "secretpass", Role: "superuser"},
	}
	for _, in := range bad {
		if err := svc.Create(ctx, in); err == nil {
			t.Errorf("accepted invalid input %+v", in)
		}
	}
	if posts.Load() != 0 {
		t.Fatal("invalid input reached the server")
	}

	ok := CreateInput{Name: "Ana", Email: "ana@hsc.co", Password: "secretpass", Role: "admin"}
	if err := svc.Create(ctx, ok); err != nil {
		t.Fatal(err)
	}
	if posts.Load() != 1 {
		t.Error("valid input never dispatched")
	}
}

func TestService_DeleteReloadsOnSuccessOnly(t *testing.T) {
	var lists, deletes atomic.Int64
	mux := http.NewServeMux()
	mux.HandleFunc("GET /usuarios", func(w http.ResponseWriter, _ *http.Request) {
		lists.Add(1)
		w.Write([]byte(`{"success": true, "data": []}`))
	})
	mux.HandleFunc("DELETE /usuarios/4", func(w http.ResponseWriter, _ *http.Request) {
		deletes.Add(1)
		w.Write([]byte(`{"success": true}`))
	})
	mux.HandleFunc("DELETE /usuarios/5", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success": false, "mensaje": "no autorizado"}`))
	})
	svc := newService(t, mux)
	ctx := context.Background()

	if err := svc.Delete(ctx, 4); err != nil {
		t.Fatal(err)
	}
	if deletes.Load() != 1 || lists.Load() != 1 {
		t.Errorf("deletes = %d, reloads = %d", deletes.Load(), lists.Load())
	}

	err := svc.Delete(ctx, 5)
	if !rest.IsAuth(err) {
		t.Fatalf("err = %v, want auth kind", err)
	}
	if lists.Load() != 1 {
		t.Error("failed delete must not reload")
	}
}
