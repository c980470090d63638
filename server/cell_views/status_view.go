package cell_views

import (
	"fmt"
	"html/template"

	"pathgrid/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// StatusView is a one line summary of the last search or rejected request.
type StatusView struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewStatusView(
	done <-chan struct{},
	frames <-chan Frame,
) (sv *StatusView) {
	sv = &StatusView{id: "status"}
	sv.updates = channerics.Convert(done, frames, sv.onUpdate)
	return
}

func (sv *StatusView) Updates() <-chan []fastview.EleUpdate {
	return sv.updates
}

func (sv *StatusView) Parse(parent *template.Template) (name string, err error) {
	_, err = parent.Parse(`{{ define "` + sv.id + `" }}
	<p id="` + sv.id + `" class="status">ctrl-click sets the start, shift-click the goal, click toggles walls</p>
	{{ end }}`)
	name = sv.id
	return
}

func (sv *StatusView) onUpdate(frame Frame) []fastview.EleUpdate {
	var text string
	switch frame.Outcome {
	case Searching:
		text = fmt.Sprintf("searching: %d cells costed", len(frame.Costed))
	case PathFound:
		text = fmt.Sprintf("path found: %d cells", len(frame.Path))
	case NoPath:
		text = "no path"
	case Failed:
		text = "invalid request " + frame.Failure
	default:
		return nil
	}
	return []fastview.EleUpdate{setText(sv.id, text)}
}
