package fastview

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

var errRejected = errors.New("rejected")

func TestClient(t *testing.T) {
	Convey("Given a client served over a websocket", t, func() {
		updates := make(chan []EleUpdate)
		received := make(chan string, 4)
		syncErrs := make(chan error, 1)

		receive := func(_ context.Context, _ int, msg []byte) error {
			if string(msg) == "reject" {
				return errRejected
			}
			received <- string(msg)
			return nil
		}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cli, err := NewClient("test", updates, JSONEncoder[[]EleUpdate], receive, w, r)
			if err != nil {
				syncErrs <- err
				return
			}
			syncErrs <- cli.Sync()
		}))
		defer server.Close()

		conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		awaitSync := func() error {
			select {
			case err := <-syncErrs:
				return err
			case <-time.After(5 * time.Second):
				return errors.New("sync did not return")
			}
		}

		Convey("Updates are published as json", func() {
			updates <- []EleUpdate{{EleId: "1-2-cost", Ops: []Op{{Key: TextContent, Value: "3"}}}}

			var got []EleUpdate
			So(conn.ReadJSON(&got), ShouldBeNil)
			So(got, ShouldResemble, []EleUpdate{{EleId: "1-2-cost", Ops: []Op{{Key: TextContent, Value: "3"}}}})
		})

		Convey("Peer messages reach the receiver in order", func() {
			So(conn.WriteMessage(websocket.TextMessage, []byte("first")), ShouldBeNil)
			So(conn.WriteMessage(websocket.TextMessage, []byte("second")), ShouldBeNil)
			So(<-received, ShouldEqual, "first")
			So(<-received, ShouldEqual, "second")
		})

		Convey("A normal close by the peer ends Sync without error", func() {
			So(conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")), ShouldBeNil)
			So(awaitSync(), ShouldBeNil)
		})

		Convey("A receiver error tears the client down", func() {
			So(conn.WriteMessage(websocket.TextMessage, []byte("reject")), ShouldBeNil)
			So(errors.Is(awaitSync(), errRejected), ShouldBeTrue)
		})
	})
}
