package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/adalberto1996/citas-hsc/internal/config"
	"github.com/adalberto1996/citas-hsc/internal/domain/citas"
	"github.com/adalberto1996/citas-hsc/internal/domain/consulta"
	"github.com/adalberto1996/citas-hsc/internal/domain/estadisticas"
	"github.com/adalberto1996/citas-hsc/internal/domain/mensajes"
	"github.com/adalberto1996/citas-hsc/internal/domain/pacientes"
	"github.com/adalberto1996/citas-hsc/internal/domain/profesionales"
	"github.com/adalberto1996/citas-hsc/internal/domain/solicitudes"
	"github.com/adalberto1996/citas-hsc/internal/domain/usuarios"
	"github.com/adalberto1996/citas-hsc/internal/platform/live"
	"github.com/adalberto1996/citas-hsc/internal/platform/rest"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "citas-admin",
		Short: "HSC citas back-office client",
	}

	rootCmd.AddCommand(citasCmd())
	rootCmd.AddCommand(pacientesCmd())
	rootCmd.AddCommand(profesionalesCmd())
	rootCmd.AddCommand(usuariosCmd())
	rootCmd.AddCommand(mensajesCmd())
	rootCmd.AddCommand(solicitudesCmd())
	rootCmd.AddCommand(consultaCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the shared wiring every subcommand needs.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	api *rest.Client
}

func bootstrap() (*app, error) {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(lvl)
	}

	api, err := rest.NewClient(cfg.APIURL, rest.StaticToken(cfg.APIToken),
		rest.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		rest.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: logger, api: api}, nil
}

func citasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "citas",
		Short: "Manage appointments",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			estado, _ := cmd.Flags().GetString("estado")
			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			page, _ := cmd.Flags().GetInt("page")
			extras, _ := cmd.Flags().GetStringSlice("columns")

			svc := citas.NewService(a.api, a.log, a.cfg.PerPage, a.cfg.Debounce())
			defer svc.Close()
			ctx := cmd.Context()

			if estado != "" {
				if err := svc.SetEstado(ctx, estado); err != nil {
					return err
				}
			}
			if from != "" || to != "" {
				if err := svc.SetDateRange(ctx, from, to); err != nil {
					return err
				}
			}
			if err := svc.Reload(ctx); err != nil {
				return err
			}
			if page > 1 {
				if err := svc.GoTo(ctx, page); err != nil {
					return err
				}
			}

			cols, err := citas.Columns()
			if err != nil {
				return err
			}
			for _, key := range extras {
				cols.Toggle(key, true)
			}
			for _, c := range cols.Active() {
				fmt.Printf("%-16s", c.Label)
			}
			fmt.Println()
			for _, item := range svc.Items() {
				for _, c := range cols.Active() {
					fmt.Printf("%-16s", c.Value(item))
				}
				fmt.Println()
			}
			p := svc.Pages()
			fmt.Printf("\npágina %d de %d (%d citas)\n", p.Page(), p.LastPage(), p.Total())
			return nil
		},
	}
	listCmd.Flags().String("estado", "", "Filter by estado (pendiente|confirmada|cancelada|reprogramada)")
	listCmd.Flags().String("from", "", "Scheduled-date range start (YYYY-MM-DD)")
	listCmd.Flags().String("to", "", "Scheduled-date range end (YYYY-MM-DD)")
	listCmd.Flags().Int("page", 1, "Page to show")
	listCmd.Flags().StringSlice("columns", nil, "Extra columns (doctor,tipo_atencion,hora_fin,canal_agenda,notas)")
	cmd.AddCommand(listCmd)

	confirmCmd := &cobra.Command{
		Use:   "confirmar <id>",
		Short: "Confirm an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCitaCommand(cmd, args[0], func(ctx context.Context, svc *citas.Service, id int) error {
				return svc.Confirm(ctx, id)
			})
		},
	}
	cmd.AddCommand(confirmCmd)

	cancelCmd := &cobra.Command{
		Use:   "cancelar <id>",
		Short: "Cancel an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCitaCommand(cmd, args[0], func(ctx context.Context, svc *citas.Service, id int) error {
				return svc.Cancel(ctx, id)
			})
		},
	}
	cmd.AddCommand(cancelCmd)

	reschedCmd := &cobra.Command{
		Use:   "reprogramar <id>",
		Short: "Reschedule an appointment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fecha, _ := cmd.Flags().GetString("fecha")
			hora, _ := cmd.Flags().GetString("hora")
			return runCitaCommand(cmd, args[0], func(ctx context.Context, svc *citas.Service, id int) error {
				return svc.RescheduleTo(ctx, id, citas.Reschedule{Fecha: fecha, Hora: hora})
			})
		},
	}
	reschedCmd.Flags().String("fecha", "", "New date (YYYY-MM-DD)")
	reschedCmd.Flags().String("hora", "", "New hour (HH:MM)")
	cmd.AddCommand(reschedCmd)

	dispCmd := &cobra.Command{
		Use:   "disponibilidad",
		Short: "Show open slots for a specialty and date",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			especialidad, _ := cmd.Flags().GetString("especialidad")
			fecha, _ := cmd.Flags().GetString("fecha")

			svc := citas.NewService(a.api, a.log, a.cfg.PerPage, a.cfg.Debounce())
			defer svc.Close()
			slots, err := svc.Availability(cmd.Context(), especialidad, fecha)
			if err != nil {
				return err
			}
			if len(slots) == 0 {
				fmt.Println("sin cupos disponibles")
				return nil
			}
			for _, s := range slots {
				if s.Hora != "" {
					fmt.Println(s.Hora)
				}
			}
			return nil
		},
	}
	dispCmd.Flags().String("especialidad", "", "Specialty")
	dispCmd.Flags().String("fecha", "", "Date (YYYY-MM-DD)")
	cmd.AddCommand(dispCmd)

	return cmd
}

func runCitaCommand(cmd *cobra.Command, rawID string, fn func(context.Context, *citas.Service, int) error) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(rawID)
	if err != nil {
		return fmt.Errorf("invalid cita id %q", rawID)
	}
	svc := citas.NewService(a.api, a.log, a.cfg.PerPage, a.cfg.Debounce())
	defer svc.Close()
	if err := fn(cmd.Context(), svc, id); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func pacientesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pacientes",
		Short: "Manage the patient registry",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			page, _ := cmd.Flags().GetInt("page")

			svc := pacientes.NewService(a.api, a.log, a.cfg.PerPage, a.cfg.Debounce())
			defer svc.Close()
			ctx := cmd.Context()
			if err := svc.Reload(ctx); err != nil {
				return err
			}
			if page > 1 {
				if err := svc.GoTo(ctx, page); err != nil {
					return err
				}
			}
			for _, p := range svc.Items() {
				fmt.Printf("%-12s %-30s %-15s %s\n", p.NumeroIdentificacion, p.NombreCompleto, p.Celular, p.EPS)
			}
			pg := svc.Pages()
			fmt.Printf("\npágina %d de %d (%d pacientes)\n", pg.Page(), pg.LastPage(), pg.Total())
			return nil
		},
	}
	listCmd.Flags().Int("page", 1, "Page to show")
	cmd.AddCommand(listCmd)

	uploadCmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Bulk-import patients from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			svc := pacientes.NewService(a.api, a.log, a.cfg.PerPage, a.cfg.Debounce())
			defer svc.Close()
			msg, err := svc.Upload(cmd.Context(), f.Name(), f)
			if err != nil {
				return err
			}
			if msg != "" {
				fmt.Println(msg)
			}
			return nil
		},
	}
	cmd.AddCommand(uploadCmd)

	return cmd
}

func profesionalesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profesionales",
		Short: "Manage the professional directory",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List professionals",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			activo, _ := cmd.Flags().GetString("activo")

			svc := profesionales.NewService(a.api, a.log, a.cfg.PerPage)
			ctx := cmd.Context()
			if activo != "" {
				if err := svc.SetActivo(ctx, activo); err != nil {
					return err
				}
			}
			if err := svc.Reload(ctx); err != nil {
				return err
			}
			for _, p := range svc.Items() {
				estado := "Inactivo"
				if p.Activo {
					estado = "Activo"
				}
				fmt.Printf("%-5d %-30s %-20s %s\n", p.ID, p.Nombre, p.Especialidad, estado)
			}
			return nil
		},
	}
	listCmd.Flags().String("activo", "", "Filter by activo (true|false)")
	cmd.AddCommand(listCmd)

	toggleCmd := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a professional's activo flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid profesional id %q", args[0])
			}

			svc := profesionales.NewService(a.api, a.log, a.cfg.PerPage)
			ctx := cmd.Context()
			if err := svc.Reload(ctx); err != nil {
				return err
			}
			for _, p := range svc.Items() {
				if p.ID == id {
					return svc.ToggleActivo(ctx, p)
				}
			}
			return fmt.Errorf("profesional %d not on the current page", id)
		},
	}
	cmd.AddCommand(toggleCmd)

	return cmd
}

func usuariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "usuarios",
		Short: "Manage back-office accounts",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			role, _ := cmd.Flags().GetString("role")

			svc := usuarios.NewService(a.api, a.log, a.cfg.PerPage)
			ctx := cmd.Context()
			if role != "" {
				if err := svc.SetRole(ctx, role); err != nil {
					return err
				}
			}
			if err := svc.Reload(ctx); err != nil {
				return err
			}
			for _, u := range svc.Items() {
				fmt.Printf("%-5d %-30s %-25s %-10s %s\n", u.ID, u.Username, u.NombreCompleto, u.Rol, u.Estado)
			}
			return nil
		},
	}
	listCmd.Flags().String("role", "", "Filter by role (admin|operador|consulta)")
	cmd.AddCommand(listCmd)

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			in := usuarios.CreateInput{}
			in.Name, _ = cmd.Flags().GetString("name")
			in.Email, _ = cmd.Flags().GetString("email")
			in.Password, _ = cmd.Flags().GetString("password")
			in.Role, _ = cmd.Flags().GetString("role")

			svc := usuarios.NewService(a.api, a.log, a.cfg.PerPage)
			return svc.Create(cmd.Context(), in)
		},
	}
	createCmd.Flags().String("name", "", "Full name")
	createCmd.Flags().String("email", "", "Email (used as username)")
	createCmd.Flags().String("password", "", "Password")
	createCmd.Flags().String("role", "operador", "Role (admin|operador|consulta)")
	cmd.AddCommand(createCmd)

	return cmd
}

func mensajesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mensajes",
		Short: "WhatsApp messaging",
	}

	contactosCmd := &cobra.Command{
		Use:   "contactos",
		Short: "List conversation contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			svc := mensajes.NewService(a.api, a.log)
			if err := svc.ReloadContacts(cmd.Context()); err != nil {
				return err
			}
			for _, c := range svc.Contacts() {
				fmt.Printf("%-15s %-25s sin leer: %d\n", c.Telefono, c.NombreCompleto, c.SinLeer)
			}
			return nil
		},
	}
	cmd.AddCommand(contactosCmd)

	convCmd := &cobra.Command{
		Use:   "conversacion <telefono>",
		Short: "Show one conversation; follows live updates with --follow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			follow, _ := cmd.Flags().GetBool("follow")

			svc := mensajes.NewService(a.api, a.log)
			ctx := cmd.Context()
			if err := svc.OpenConversation(ctx, args[0]); err != nil {
				return err
			}
			for _, m := range svc.Conversation() {
				fmt.Printf("[%s] %s: %s\n", m.Fecha, m.Tipo, m.Texto)
			}
			if !follow {
				return nil
			}
			if a.cfg.WSURL == "" {
				return fmt.Errorf("WS_URL is not configured; cannot follow")
			}

			bridge, err := live.Dial(ctx, a.cfg.WSURL, rest.StaticToken(a.cfg.APIToken), a.log)
			if err != nil {
				return err
			}
			defer bridge.Close()
			svc.Attach(ctx, bridge)
			bridge.Subscribe(args[0], func(ev live.Event) {
				m := mensajes.MapMessage(ev.Payload)
				fmt.Printf("[%s] %s: %s\n", m.Fecha, m.Tipo, m.Texto)
			})

			runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()
			go func() {
				<-runCtx.Done()
				bridge.Close()
			}()
			err = bridge.Run(runCtx)
			if runCtx.Err() != nil {
				return nil
			}
			return err
		},
	}
	convCmd.Flags().Bool("follow", false, "Keep listening for pushed messages")
	cmd.AddCommand(convCmd)

	enviarCmd := &cobra.Command{
		Use:   "enviar <telefono> <mensaje>",
		Short: "Send a WhatsApp message",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			svc := mensajes.NewService(a.api, a.log)
			ctx := cmd.Context()
			if err := svc.OpenConversation(ctx, args[0]); err != nil {
				return err
			}
			return svc.Send(ctx, args[1])
		},
	}
	cmd.AddCommand(enviarCmd)

	plantillasCmd := &cobra.Command{
		Use:   "plantillas",
		Short: "List message templates by category",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			svc := mensajes.NewService(a.api, a.log)
			ts, err := svc.Templates(cmd.Context())
			if err != nil {
				return err
			}
			order, groups := mensajes.ByCategory(ts)
			for _, cat := range order {
				fmt.Printf("== %s ==\n", cat)
				for _, t := range groups[cat] {
					fmt.Printf("  %s: %s\n", t.Nombre, t.Mensaje)
				}
			}
			return nil
		},
	}
	cmd.AddCommand(plantillasCmd)

	return cmd
}

func solicitudesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solicitudes",
		Short: "Pending appointment requests",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List pending requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			svc := solicitudes.NewService(a.api, a.log)
			if err := svc.Reload(cmd.Context()); err != nil {
				return err
			}
			for _, r := range svc.Items() {
				fmt.Printf("%-5d %-15s %s\n", r.ID, r.Telefono, r.Mensaje)
			}
			return nil
		},
	}
	cmd.AddCommand(listCmd)

	resolverCmd := &cobra.Command{
		Use:   "resolver <id>",
		Short: "Resolve a request, optionally linking the created cita",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid solicitud id %q", args[0])
			}
			estado, _ := cmd.Flags().GetString("estado")
			idCita, _ := cmd.Flags().GetInt("id-cita")

			svc := solicitudes.NewService(a.api, a.log)
			return svc.UpdateStatus(cmd.Context(), id, solicitudes.StatusUpdate{Estado: estado, IDCita: idCita})
		},
	}
	resolverCmd.Flags().String("estado", "atendida", "Resolution (atendida|rechazada)")
	resolverCmd.Flags().Int("id-cita", 0, "Appointment created for this request")
	cmd.AddCommand(resolverCmd)

	return cmd
}

func consultaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "consulta <documento>",
		Short: "Look up the appointment scheduled for a document number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			svc := consulta.NewService(a.api, a.log)
			cita, err := svc.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("cita %d: %s %s — %s (%s)\n", cita.ID, cita.Fecha, cita.Hora, cita.Especialidad, cita.Estado)
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "estadisticas",
		Short: "Show the dashboard counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			svc := estadisticas.NewService(a.api, a.log)
			s := svc.Load(cmd.Context())
			fmt.Printf("Citas hoy:               %d\n", s.CitasHoy)
			fmt.Printf("Citas esta semana:       %d\n", s.CitasSemana)
			fmt.Printf("Atención hoy:            %d\n", s.CitasAtencionHoy)
			fmt.Printf("Atención esta semana:    %d\n", s.CitasAtencionSemana)
			fmt.Printf("Mensajes hoy:            %d\n", s.MensajesHoy)
			fmt.Printf("Solicitudes pendientes:  %d\n", s.SolicitudesPendientes)
			fmt.Printf("Total pacientes:         %d\n", s.TotalPacientes)
			return nil
		},
	}
}
