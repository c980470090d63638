package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"pathgrid/config"
	"pathgrid/events"
	"pathgrid/grid_world"
	"pathgrid/server/cell_views"
	"pathgrid/server/fastview"
	"pathgrid/server/root_view"
	"pathgrid/wire"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Time to let in-flight requests finish on shutdown.
const shutdownGracePeriod = 5 * time.Second

var (
	clientsConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pathgrid_clients_connected",
		Help: "Websocket clients currently subscribed to engine events",
	})
	clientEventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pathgrid_client_events_dropped_total",
		Help: "Outbound events dropped because a client's buffer was full",
	})
	inboundDecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pathgrid_inbound_decode_errors_total",
		Help: "Inbound messages that could not be decoded, by codec",
	}, []string{"codec"})
)

// Server connects browsers and programmatic clients to the engine. Inbound events from every
// connection are sent to one channel that the engine loop drains; outbound events reach each
// connection through its own subscription to the bus the engine publishes to.
type Server struct {
	addr     string
	cfg      config.ServerConfig
	grid     config.GridConfig
	bus      *events.Bus
	inbound  chan<- events.Event
	router   *mux.Router
	httpSrvr *http.Server
}

// NewServer builds the routes. cfg.Grid sizes the index page when the request does not.
func NewServer(
	cfg *config.AppConfig,
	bus *events.Bus,
	inbound chan<- events.Event,
) (*Server, error) {
	if _, err := wire.ByName(cfg.Server.Codec); err != nil {
		return nil, err
	}

	server := &Server{
		addr:    cfg.Addr(),
		cfg:     cfg.Server,
		grid:    cfg.Grid,
		bus:     bus,
		inbound: inbound,
		router:  mux.NewRouter(),
	}
	server.router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	server.router.HandleFunc("/ws", server.serveWebsocket)
	server.router.HandleFunc("/events", server.serveEvents)
	server.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return server, nil
}

// Handler exposes the routes, e.g. for httptest.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) (err error) {
	server.httpSrvr = &http.Server{
		Addr:    server.addr,
		Handler: server.router,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		_ = server.httpSrvr.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", server.addr).Info("serving")
	if err = server.httpSrvr.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
		err = nil
	} else if err != nil {
		err = fmt.Errorf("serve: %w", err)
	}
	return
}

// subscribe registers a new client with the bus and returns its id and event channel.
// The returned func unsubscribes it.
func (server *Server) subscribe() (string, *events.ChanHandler, func(), error) {
	id := uuid.NewString()
	handler := events.NewChanHandler(server.cfg.ClientBuffer)
	if err := server.bus.Subscribe(id, handler); err != nil {
		return "", nil, nil, err
	}
	clientsConnected.Inc()

	unsubscribe := func() {
		_ = server.bus.Unsubscribe(id)
		clientsConnected.Dec()
		stats := handler.Stats()
		clientEventsDropped.Add(float64(stats.Dropped))
		log.WithFields(log.Fields{
			"client":  id,
			"sent":    stats.Sent,
			"dropped": stats.Dropped,
		}).Info("client disconnected")
	}
	return id, handler, unsubscribe, nil
}

// receiver decodes inbound messages with codec and forwards them to the engine. Undecodable
// messages are logged and skipped; they never close the connection.
func (server *Server) receiver(clientId, codecName string, codec wire.Codec) fastview.Receiver {
	return func(ctx context.Context, _ int, msg []byte) error {
		ev, err := codec.Decode(msg)
		if err != nil {
			inboundDecodeErrors.WithLabelValues(codecName).Inc()
			log.WithFields(log.Fields{"client": clientId, "error": err}).Warn("undecodable message")
			return nil
		}
		if !ev.Type().Inbound() {
			log.WithFields(log.Fields{"client": clientId, "type": ev.Type()}).Warn("outbound event sent by client")
			return nil
		}

		select {
		case server.inbound <- ev:
		case <-ctx.Done():
		}
		return nil
	}
}

// serveWebsocket is the browser page's connection: inbound json events, outbound ele-updates.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	id, handler, unsubscribe, err := server.subscribe()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer unsubscribe()

	rootView, err := root_view.NewRootView(r.Context(), handler.Events(), server.cfg.PublishResolution)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cli, err := fastview.NewClient(
		id,
		rootView.Updates(),
		fastview.JSONEncoder[[]fastview.EleUpdate],
		server.receiver(id, "json", wire.JSON{}),
		w, r)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	log.WithField("client", id).Info("page client connected")
	if err = cli.Sync(); err != nil {
		log.WithFields(log.Fields{"client": id, "error": err}).Warn("page client failed")
	}
}

// serveEvents streams raw events in both directions for programmatic clients. The codec is
// chosen with ?codec=json|msgpack and defaults to the configured one.
func (server *Server) serveEvents(w http.ResponseWriter, r *http.Request) {
	codecName := r.URL.Query().Get("codec")
	if codecName == "" {
		codecName = server.cfg.Codec
	}
	codec, err := wire.ByName(codecName)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id, handler, unsubscribe, err := server.subscribe()
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	defer unsubscribe()

	encode := func(ev events.Event) (int, []byte, error) {
		msg, err := codec.Encode(ev)
		return codec.MessageType(), msg, err
	}
	cli, err := fastview.NewClient(
		id,
		handler.Events(),
		encode,
		server.receiver(id, codecName, codec),
		w, r)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	log.WithFields(log.Fields{"client": id, "codec": codecName}).Info("event client connected")
	if err = cli.Sync(); err != nil {
		log.WithFields(log.Fields{"client": id, "error": err}).Warn("event client failed")
	}
}

// Serve the index.html main page. ?columns=&rows= size the board; the page rebuilds the engine's
// grid to match when its websocket opens.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	columns, err := dimension(r, "columns", server.grid.Columns)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	rows, err := dimension(r, "rows", server.grid.Rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rootView, err := root_view.NewRootView(r.Context(), nil, 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html")
	if err := renderTemplate(w, rootView, cell_views.NewBoard(columns, rows)); err != nil {
		log.WithError(err).Error("index render failed")
		_, _ = w.Write([]byte(err.Error()))
	}
}

func dimension(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !grid_world.ValidDimension(n) {
		return 0, fmt.Errorf("%s=%q: %w", key, raw, grid_world.ErrInvalidDimensions)
	}
	return n, nil
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}
