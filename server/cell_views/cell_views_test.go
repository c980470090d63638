package cell_views

import (
	"bytes"
	"html/template"
	"testing"

	"pathgrid/events"
	"pathgrid/server/fastview"

	. "github.com/smartystreets/goconvey/convey"
)

func text(eleId, value string) fastview.EleUpdate {
	return fastview.EleUpdate{EleId: eleId, Ops: []fastview.Op{{Key: fastview.TextContent, Value: value}}}
}

func mark(eleId, value string) fastview.EleUpdate {
	return fastview.EleUpdate{EleId: eleId, Ops: []fastview.Op{{Key: pathAttr, Value: value}}}
}

func TestConvert(t *testing.T) {
	Convey("Outbound events become frames", t, func() {
		frame := Convert(events.NewNeighbours{Costs: map[string]int{"1-0": 1, "0-0": 0, "0-1": 1}})
		So(frame.Outcome, ShouldEqual, Searching)
		So(frame.Costed, ShouldResemble, []string{"0-0", "0-1", "1-0"})

		frame = Convert(&events.PathFound{Path: []string{"0-0", "0-1"}, Found: true})
		So(frame.Outcome, ShouldEqual, PathFound)
		So(frame.Path, ShouldResemble, []string{"0-0", "0-1"})

		So(Convert(events.PathFound{}).Outcome, ShouldEqual, NoPath)

		frame = Convert(events.RequestFailed{Request: events.TypeStep, Reason: "no step-wise session"})
		So(frame.Outcome, ShouldEqual, Failed)
		So(frame.Failure, ShouldEqual, "step: no step-wise session")

		So(Convert(events.SetStart{Start: "0-0"}).Outcome, ShouldEqual, Ignored)
		So(Convert(events.SetStart{Start: "0-0"}).Drawable(), ShouldBeFalse)
		So(Convert(events.PathFound{Found: false}).Drawable(), ShouldBeTrue)
	})
}

func TestNewBoard(t *testing.T) {
	Convey("Boards are laid out in rows", t, func() {
		board := NewBoard(3, 2)
		So(len(board.Cells), ShouldEqual, 2)
		So(len(board.Cells[0]), ShouldEqual, 3)
		So(board.Cells[1][2], ShouldResemble, Cell{X: 2, Y: 1, Name: "2-1"})
		So(board.Cells[1][2].CostId(), ShouldEqual, "2-1-cost")
	})
}

func TestGridView(t *testing.T) {
	Convey("Given a grid view", t, func() {
		gv := &GridView{id: "grid"}

		Convey("Cost maps set cost text and clear costs they no longer hold", func() {
			updates := gv.onUpdate(Convert(events.NewNeighbours{Costs: map[string]int{"0-0": 0, "1-0": 1}}))
			So(updates, ShouldResemble, []fastview.EleUpdate{text("0-0-cost", "0"), text("1-0-cost", "1")})

			updates = gv.onUpdate(Convert(events.NewNeighbours{Costs: map[string]int{"0-0": 0}}))
			So(updates, ShouldResemble, []fastview.EleUpdate{text("1-0-cost", ""), text("0-0-cost", "0")})
		})

		Convey("Paths are marked and cleared by the next search", func() {
			updates := gv.onUpdate(Convert(events.PathFound{Path: []string{"0-0", "0-1"}, Found: true}))
			So(updates, ShouldResemble, []fastview.EleUpdate{mark("0-0", "true"), mark("0-1", "true")})

			updates = gv.onUpdate(Convert(events.NewNeighbours{Costs: map[string]int{"2-2": 0}}))
			So(updates, ShouldResemble, []fastview.EleUpdate{
				mark("0-0", "false"),
				mark("0-1", "false"),
				text("2-2-cost", "0"),
			})
		})

		Convey("No path clears the previous path", func() {
			gv.onUpdate(Convert(events.PathFound{Path: []string{"0-0"}, Found: true}))
			So(gv.onUpdate(Convert(events.PathFound{})), ShouldResemble, []fastview.EleUpdate{mark("0-0", "false")})
			So(gv.onUpdate(Convert(events.PathFound{})), ShouldBeEmpty)
		})

		Convey("Failures and inbound events leave the grid alone", func() {
			So(gv.onUpdate(Convert(events.RequestFailed{Request: events.TypeGetPath})), ShouldBeEmpty)
			So(gv.onUpdate(Convert(events.GetPath{})), ShouldBeEmpty)
		})

		Convey("The template renders every cell with its cost element", func() {
			page := template.New("page")
			name, err := gv.Parse(page)
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "grid")

			_, err = page.Parse(`{{ template "grid" . }}`)
			So(err, ShouldBeNil)
			var out bytes.Buffer
			So(page.Execute(&out, NewBoard(3, 2)), ShouldBeNil)
			So(out.String(), ShouldContainSubstring, `id="2-1"`)
			So(out.String(), ShouldContainSubstring, `id="2-1-cost"`)
			So(out.String(), ShouldContainSubstring, `data-columns="3"`)
			So(out.String(), ShouldNotContainSubstring, `id="3-0"`)
		})
	})
}

func TestStatusView(t *testing.T) {
	Convey("The status line summarizes each outcome", t, func() {
		sv := &StatusView{id: "status"}
		So(sv.onUpdate(Convert(events.NewNeighbours{Costs: map[string]int{"0-0": 0, "0-1": 1}})),
			ShouldResemble, []fastview.EleUpdate{text("status", "searching: 2 cells costed")})
		So(sv.onUpdate(Convert(events.PathFound{Path: []string{"0-0", "0-1"}, Found: true})),
			ShouldResemble, []fastview.EleUpdate{text("status", "path found: 2 cells")})
		So(sv.onUpdate(Convert(events.PathFound{})),
			ShouldResemble, []fastview.EleUpdate{text("status", "no path")})
		So(sv.onUpdate(Convert(events.RequestFailed{Request: events.TypeGetPath, Reason: "start cell not set"})),
			ShouldResemble, []fastview.EleUpdate{text("status", "invalid request get-path: start cell not set")})
		So(sv.onUpdate(Convert(events.Step{})), ShouldBeNil)
	})
}
