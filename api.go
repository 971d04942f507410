package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof" // register handlers
	"regexp"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bleusakura/borrowbot/channel"
	"github.com/bleusakura/borrowbot/message"
)

func (robo *Robot) api(ctx context.Context, listen string, mux *http.ServeMux, metrics []prometheus.Collector) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(
		collectors.WithGoCollectorMemStatsMetricsDisabled(),
		collectors.WithGoCollectorRuntimeMetrics(
			collectors.GoRuntimeMetricsRule{
				Matcher: regexp.MustCompile(`^(/gc/gogc:percent|/gc/gomemlimit:bytes|/gc/heap/allocs:bytes|/gc/heap/goal:bytes|/memory/classes/total:bytes|/sched/gomaxprocs:threads|/sched/goroutines:goroutines|/sched/latencies:seconds)$`),
			},
		),
	))
	reg.MustRegister(metrics...)
	robo.routes(mux, reg)
	l, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("couldn't start API server: %w", err)
	}
	srv := http.Server{
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
		BaseContext: func(l net.Listener) context.Context { return ctx },
	}
	go func() {
		slog.InfoContext(ctx, "HTTP API server", slog.Any("addr", l.Addr()))
		err := srv.Serve(l)
		if err == http.ErrServerClosed {
			return
		}
		slog.ErrorContext(ctx, "HTTP API server closed", slog.Any("err", err))
	}()
	<-ctx.Done()
	// The context is now done, so it is obviously the wrong choice for
	// managing the shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func (robo *Robot) routes(mux *http.ServeMux, reg *prometheus.Registry) {
	opts := promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, opts))
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("GET /api/commands", robo.apiCommands)
	mux.HandleFunc("GET /api/channels", robo.apiChannels)
	mux.HandleFunc("POST /api/announce/{channel}", robo.apiAnnounce)
}

func jsonerror(w http.ResponseWriter, status int, msg string) {
	v := struct {
		Error  string `json:"error"`
		Status int    `json:"status"`
	}{
		Error:  msg,
		Status: status,
	}
	b, err := json.Marshal(&v)
	if err != nil {
		panic(err)
	}
	w.WriteHeader(status)
	w.Write(b)
}

func apilog(r *http.Request, name string) *slog.Logger {
	log := slog.With(slog.String("api", name), slog.Any("trace", uuid.New()))
	log.InfoContext(r.Context(), "handle", slog.String("route", r.Pattern), slog.String("remote", r.RemoteAddr))
	return log
}

func respond(w http.ResponseWriter, r *http.Request, log *slog.Logger, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	if _, err := w.Write(b); err != nil {
		log.ErrorContext(r.Context(), "write response failed", slog.Any("err", err))
	}
}

type apiCommand struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       string `json:"level"`
	Cooldown    string `json:"cooldown,omitzero"`
}

func (robo *Robot) apiCommands(w http.ResponseWriter, r *http.Request) {
	log := apilog(r, "commands")
	defer log.InfoContext(r.Context(), "done")
	w.Header().Set("Content-Type", "application/json")
	specs := robo.cmd.Registry.All()
	u := struct {
		Data   []apiCommand `json:"data"`
		Status int          `json:"status"`
	}{
		Data:   make([]apiCommand, len(specs)),
		Status: http.StatusOK,
	}
	for i, s := range specs {
		u.Data[i] = apiCommand{
			Name:        s.Name,
			Description: s.Description,
			Level:       s.Level.String(),
		}
		if s.Cooldown > 0 {
			u.Data[i].Cooldown = s.Cooldown.String()
		}
	}
	respond(w, r, log, &u)
}

func (robo *Robot) apiChannels(w http.ResponseWriter, r *http.Request) {
	log := apilog(r, "channels")
	defer log.InfoContext(r.Context(), "done")
	w.Header().Set("Content-Type", "application/json")
	u := struct {
		Data   []string `json:"data"`
		Status int      `json:"status"`
	}{
		Data:   robo.channels.All(),
		Status: http.StatusOK,
	}
	respond(w, r, log, &u)
}

// apiAnnounce queues a stream of JSON strings as messages to a channel.
func (robo *Robot) apiAnnounce(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := apilog(r, "announce")
	defer log.InfoContext(ctx, "done")
	ch := channel.Name(r.PathValue("channel"))
	if !robo.channels.Has(ch) {
		jsonerror(w, http.StatusNotFound, "not in channel")
		return
	}
	d := jsontext.NewDecoder(r.Body)
	var msgs []message.Sent
	for {
		tok, err := d.ReadToken()
		switch err {
		case nil: // do nothing
		case io.EOF:
			for _, m := range msgs {
				robo.queue.Enqueue(m)
			}
			log.InfoContext(ctx, "announced", slog.String("channel", ch), slog.Int("count", len(msgs)))
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			log.ErrorContext(ctx, "read token", slog.Any("err", err))
			jsonerror(w, http.StatusBadRequest, "token read failed")
			return
		}
		if tok.Kind() != '"' {
			log.WarnContext(ctx, "invalid token", slog.Any("kind", tok.Kind()))
			jsonerror(w, http.StatusBadRequest, "input not a JSON string")
			return
		}
		if s := tok.String(); s != "" {
			msgs = append(msgs, message.Sent{To: ch, Text: s})
		}
	}
}
