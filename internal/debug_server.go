package internal

import (
	"chat-client/domain"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/lo"
)

//go:embed inspect.html
var templatesFS embed.FS

// Source is what the inspect page reads. Every call must return a snapshot.
type Source interface {
	Session() domain.Session
	Rooms() []domain.Room
	Log() []domain.LogEntry
}

type StatsProvider func() map[string]any

type InspectRow struct {
	Sequence  int
	Timestamp string
	Text      string
}

type PageData struct {
	Session domain.Session
	Rooms   []domain.Room
	Items   []InspectRow
	Stats   map[string]any
	Now     string
}

// NewInspectHandler renders a read-only page of the session, its rooms and
// the activity log.
func NewInspectHandler(source Source, statsProvider StatsProvider) http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := PageData{
			Session: source.Session(),
			Rooms:   source.Rooms(),
			Items: lo.Map(source.Log(), func(e domain.LogEntry, _ int) InspectRow {
				return InspectRow{Sequence: e.Sequence, Timestamp: e.At.Format("15:04:05"), Text: e.Text}
			}),
			Stats: make(map[string]any),
			Now:   time.Now().Format(time.RFC822),
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// StartDebugServer serves the inspect page on endpoint until ctx is done.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, endpoint string,
	source Source, statsProvider StatsProvider) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(endpoint, NewInspectHandler(source, statsProvider))

	srv := &http.Server{
		Addr:              fmt.Sprintf("localhost:%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Inspect server stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("Inspect page available", "url", fmt.Sprintf("http://localhost:%d%s", port, endpoint))
	return srv
}
