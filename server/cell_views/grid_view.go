package cell_views

import (
	"html/template"
	"strconv"

	"pathgrid/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// Attribute marking cells on the current path; the page styles [data-path="true"].
const pathAttr = "data-path"

// GridView renders the board and keeps each cell's cost text and path mark current.
// It remembers what it last marked so that a new search clears the previous one.
type GridView struct {
	id      string
	costed  []string
	path    []string
	updates <-chan []fastview.EleUpdate
}

func NewGridView(
	done <-chan struct{},
	frames <-chan Frame,
) (gv *GridView) {
	gv = &GridView{id: "grid"}
	gv.updates = channerics.Convert(done, frames, gv.onUpdate)
	return
}

func (gv *GridView) Updates() <-chan []fastview.EleUpdate {
	return gv.updates
}

// Parse defines the grid template over a Board. Cell clicks are wired up by the root view.
func (gv *GridView) Parse(parent *template.Template) (name string, err error) {
	_, err = parent.Parse(`{{ define "` + gv.id + `" }}
	<div id="` + gv.id + `" class="grid"
		data-columns="{{ .Columns }}" data-rows="{{ .Rows }}"
		style="grid-template-columns: repeat({{ .Columns }}, 28px);">
		{{ range $row := .Cells }}
			{{ range $cell := $row }}
			<div id="{{ $cell.Name }}" class="cell" data-path="false"><span id="{{ $cell.CostId }}" class="cost"></span></div>
			{{ end }}
		{{ end }}
	</div>
	{{ end }}`)
	name = gv.id
	return
}

// onUpdate returns the ele-updates that bring the grid in line with frame. Each Searching frame
// carries the full cost map, so costs missing from it are cleared.
func (gv *GridView) onUpdate(frame Frame) (updates []fastview.EleUpdate) {
	switch frame.Outcome {
	case Searching:
		updates = gv.clearPath()
		for _, name := range gv.costed {
			if _, ok := frame.Costs[name]; !ok {
				updates = append(updates, setText(CostId(name), ""))
			}
		}
		for _, name := range frame.Costed {
			updates = append(updates, setText(CostId(name), strconv.Itoa(frame.Costs[name])))
		}
		gv.costed = frame.Costed

	case PathFound:
		updates = gv.clearPath()
		for _, name := range frame.Path {
			updates = append(updates, fastview.EleUpdate{
				EleId: name,
				Ops:   []fastview.Op{{Key: pathAttr, Value: "true"}},
			})
		}
		gv.path = frame.Path

	case NoPath:
		updates = gv.clearPath()
	}
	return
}

func (gv *GridView) clearPath() (updates []fastview.EleUpdate) {
	for _, name := range gv.path {
		updates = append(updates, fastview.EleUpdate{
			EleId: name,
			Ops:   []fastview.Op{{Key: pathAttr, Value: "false"}},
		})
	}
	gv.path = nil
	return
}

func setText(eleId, text string) fastview.EleUpdate {
	return fastview.EleUpdate{
		EleId: eleId,
		Ops:   []fastview.Op{{Key: fastview.TextContent, Value: text}},
	}
}
