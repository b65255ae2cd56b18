package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/grvc/ambassadors/internal/config"
	"github.com/grvc/ambassadors/internal/handlers"
	"github.com/grvc/ambassadors/internal/logging"
	"github.com/grvc/ambassadors/internal/session"
	"github.com/grvc/ambassadors/internal/store"
	"github.com/grvc/ambassadors/internal/wizard"
)

//go:embed templates
var templateFS embed.FS

// Deps is everything the HTTP surface needs.
type Deps struct {
	Log           zerolog.Logger
	Sessions      *session.Manager
	Store         store.Store // nil disables /qr and ?code= lookups
	Event         wizard.EventConfig
	PublicBaseURL string
	StaticDir     string        // "" disables /static/
	LiveInterval  time.Duration // defaults to wizard.TickInterval
}

func Router(d Deps) http.Handler {
	if d.LiveInterval <= 0 {
		d.LiveInterval = wizard.TickInterval
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(d.Log))
	r.Use(logging.RequestLogger(d.Log))
	r.Use(middleware.Recoverer)

	tmpl := mustParseTemplates()

	r.Get("/", handlers.Home(tmpl, d.Sessions))
	r.Get("/healthz", handlers.Health)

	r.Route("/wizard", func(wr chi.Router) {
		wr.Post("/field", handlers.Field(d.Sessions))
		wr.Post("/next", handlers.Next(d.Sessions))
		wr.Post("/prev", handlers.Prev(d.Sessions))
		wr.Post("/submit", handlers.Submit(d.Sessions))
		wr.Post("/restart", handlers.Restart(d.Sessions))
		wr.Get("/state", handlers.State(d.Sessions))
		wr.Get("/live", handlers.Live(d.Sessions, d.LiveInterval))
	})

	r.Get(wizard.ConfirmationPath, handlers.Confirmation(tmpl, d.Sessions, d.Store, d.Event))
	r.Get("/qr/{code}.png", handlers.QR(d.Store, d.PublicBaseURL))

	if d.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(d.StaticDir))))
	}
	return r
}

func mustParseTemplates() *template.Template {
	loc := config.Nairobi()

	funcs := template.FuncMap{
		"year":   func() string { return time.Now().In(loc).Format("2006") },
		"inc":    func(i int) int { return i + 1 },
		"isCard": func(m wizard.PaymentMethod) bool { return m == wizard.PaymentCard },
	}

	p := template.New("").Funcs(funcs)
	p = template.Must(p.ParseFS(templateFS, "templates/partials/*.tmpl"))
	p = template.Must(p.ParseFS(templateFS, "templates/pages/*.tmpl"))
	return p
}
