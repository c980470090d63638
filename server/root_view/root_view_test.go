package root_view

import (
	"bytes"
	"context"
	"html/template"
	"testing"
	"time"

	"pathgrid/events"
	"pathgrid/server/cell_views"
	"pathgrid/server/fastview"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBatchify(t *testing.T) {
	Convey("Updates within a batch are merged per ele and key", t, func() {
		done := make(chan struct{})
		defer close(done)

		source := make(chan []fastview.EleUpdate)
		output := batchify(done, source, time.Hour)

		source <- []fastview.EleUpdate{
			{EleId: "0-0", Ops: []fastview.Op{{Key: "data-path", Value: "false"}}},
			{EleId: "0-0-cost", Ops: []fastview.Op{{Key: fastview.TextContent, Value: "0"}}},
		}
		source <- []fastview.EleUpdate{
			{EleId: "0-0", Ops: []fastview.Op{{Key: "data-path", Value: "true"}, {Key: "class", Value: "cell"}}},
		}
		close(source)

		So(<-output, ShouldResemble, []fastview.EleUpdate{
			{EleId: "0-0", Ops: []fastview.Op{{Key: "data-path", Value: "true"}, {Key: "class", Value: "cell"}}},
			{EleId: "0-0-cost", Ops: []fastview.Op{{Key: fastview.TextContent, Value: "0"}}},
		})
		_, open := <-output
		So(open, ShouldBeFalse)
	})

	Convey("Batches are flushed on each tick", t, func() {
		done := make(chan struct{})
		defer close(done)

		source := make(chan []fastview.EleUpdate)
		output := batchify(done, source, 5*time.Millisecond)
		source <- []fastview.EleUpdate{{EleId: "status", Ops: []fastview.Op{{Key: fastview.TextContent, Value: "no path"}}}}

		select {
		case updates := <-output:
			So(updates[0].EleId, ShouldEqual, "status")
		case <-time.After(time.Second):
			So("no batch was flushed", ShouldBeEmpty)
		}
	})
}

func TestRootView(t *testing.T) {
	Convey("Given a root view over outbound events", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		outbound := make(chan events.Event)
		rv, err := NewRootView(ctx, outbound, 5*time.Millisecond)
		So(err, ShouldBeNil)

		Convey("Search results reach the page as ele-updates", func() {
			go func() {
				outbound <- events.NewNeighbours{Costs: map[string]int{"0-0": 0, "0-1": 1}}
				outbound <- events.PathFound{Path: []string{"0-0", "0-1"}, Found: true}
			}()

			seen := map[string]string{}
			timeout := time.After(2 * time.Second)
			for seen["status"] != "path found: 2 cells" || seen["0-1"] != "true" {
				select {
				case updates := <-rv.Updates():
					for _, update := range updates {
						for _, op := range update.Ops {
							seen[update.EleId] = op.Value
						}
					}
				case <-timeout:
					So(seen["status"], ShouldEqual, "path found: 2 cells")
					So(seen["0-1"], ShouldEqual, "true")
					return
				}
			}
			So(seen["0-1-cost"], ShouldEqual, "1")
			So(seen["0-1"], ShouldEqual, "true")
		})

		Convey("The page renders the board and its bootstrap", func() {
			page := template.New("index.html")
			name, err := rv.Parse(page)
			So(err, ShouldBeNil)
			_, err = page.Parse(`{{ template "` + name + `" . }}`)
			So(err, ShouldBeNil)

			var out bytes.Buffer
			So(page.Execute(&out, cell_views.NewBoard(4, 3)), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, `id="3-2-cost"`)
			So(out.String(), ShouldContainSubstring, `id="status"`)
			So(out.String(), ShouldContainSubstring, `new WebSocket`)
		})
	})
}
