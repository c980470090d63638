package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pathgrid/astar"
	"pathgrid/config"
	"pathgrid/events"
	"pathgrid/server/fastview"
	"pathgrid/wire"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

func get(url string) (int, string) {
	resp, err := http.Get(url)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	So(err, ShouldBeNil)
	return resp.StatusCode, string(body)
}

func dial(url string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	So(err, ShouldBeNil)
	return conn
}

func sendAll(conn *websocket.Conn, codec wire.Codec, evs ...events.Event) {
	for _, ev := range evs {
		msg, err := codec.Encode(ev)
		So(err, ShouldBeNil)
		So(conn.WriteMessage(codec.MessageType(), msg), ShouldBeNil)
	}
}

// awaitEvent reads events until one of type typ arrives.
func awaitEvent(conn *websocket.Conn, codec wire.Codec, typ events.Type) events.Event {
	So(conn.SetReadDeadline(time.Now().Add(5*time.Second)), ShouldBeNil)
	for {
		_, msg, err := conn.ReadMessage()
		So(err, ShouldBeNil)
		ev, err := codec.Decode(msg)
		So(err, ShouldBeNil)
		if ev.Type() == typ {
			return ev
		}
	}
}

var searchEvents = []events.Event{
	events.NewGraph{Columns: 3, Rows: 3},
	events.SetWall{CellNames: []string{"1-0", "1-1"}, IsWall: []bool{true, true}},
	events.SetStart{Start: "0-0"},
	events.SetGoal{Goal: "2-0"},
	events.GetPath{},
}

func TestServer(t *testing.T) {
	Convey("Given a server in front of a running engine", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		bus := events.NewBus()
		inbound := make(chan events.Event)
		engine := astar.NewEngine(bus)
		go func() { _ = engine.Run(ctx, inbound) }()

		cfg := config.Default()
		cfg.Server.PublishResolution = 5 * time.Millisecond
		srv, err := NewServer(cfg, bus, inbound)
		So(err, ShouldBeNil)
		httpServer := httptest.NewServer(srv.Handler())
		defer httpServer.Close()

		Convey("The index page renders the configured board", func() {
			status, body := get(httpServer.URL + "/")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, `id="19-19-cost"`)
			So(body, ShouldContainSubstring, `id="status"`)
		})

		Convey("The index page can be sized by query", func() {
			status, body := get(httpServer.URL + "/?columns=3&rows=2")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, `id="2-1"`)
			So(body, ShouldNotContainSubstring, `id="3-0"`)

			status, _ = get(httpServer.URL + "/?columns=0&rows=2")
			So(status, ShouldEqual, http.StatusBadRequest)
			status, _ = get(httpServer.URL + "/?columns=201&rows=2")
			So(status, ShouldEqual, http.StatusBadRequest)
			status, _ = get(httpServer.URL + "/?rows=many")
			So(status, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Metrics are exposed", func() {
			status, body := get(httpServer.URL + "/metrics")
			So(status, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "pathgrid_clients_connected")
		})

		Convey("The event stream speaks msgpack", func() {
			codec := wire.Msgpack{}
			conn := dial(httpServer.URL + "/events?codec=msgpack")
			defer conn.Close()

			So(conn.WriteMessage(websocket.BinaryMessage, []byte{0xc1}), ShouldBeNil)
			sendAll(conn, codec, searchEvents...)

			found := awaitEvent(conn, codec, events.TypePathFound).(events.PathFound)
			So(found.Found, ShouldBeTrue)
			So(found.Path, ShouldResemble, []string{"0-0", "0-1", "0-2", "1-2", "2-2", "2-1", "2-0"})
		})

		Convey("The event stream reports invalid requests", func() {
			codec := wire.JSON{}
			conn := dial(httpServer.URL + "/events")
			defer conn.Close()

			sendAll(conn, codec, events.NewGraph{Columns: 2, Rows: 2}, events.Step{})
			failed := awaitEvent(conn, codec, events.TypeRequestFailed).(events.RequestFailed)
			So(failed.Request, ShouldEqual, events.TypeStep)
		})

		Convey("Unknown codecs are refused before the upgrade", func() {
			_, resp, err := websocket.DefaultDialer.Dial(
				"ws"+strings.TrimPrefix(httpServer.URL, "http")+"/events?codec=xml", nil)
			So(err, ShouldNotBeNil)
			So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("The page websocket turns search results into ele-updates", func() {
			conn := dial(httpServer.URL + "/ws")
			defer conn.Close()

			sendAll(conn, wire.JSON{}, searchEvents...)

			So(conn.SetReadDeadline(time.Now().Add(5*time.Second)), ShouldBeNil)
			seen := map[string]string{}
			for seen["status"] != "path found: 7 cells" || seen["2-0"] != "true" {
				_, msg, err := conn.ReadMessage()
				So(err, ShouldBeNil)
				var updates []fastview.EleUpdate
				So(json.Unmarshal(msg, &updates), ShouldBeNil)
				for _, update := range updates {
					for _, op := range update.Ops {
						seen[update.EleId] = op.Value
					}
				}
			}
			So(seen["2-0"], ShouldEqual, "true")
			So(seen["0-0-cost"], ShouldEqual, "0")
		})
	})
}
