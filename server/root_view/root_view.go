package root_view

import (
	"context"
	"html/template"
	"time"

	"pathgrid/events"
	"pathgrid/server/cell_views"
	"pathgrid/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// DefaultResolution is used when NewRootView is given a non-positive resolution.
const DefaultResolution = 20 * time.Millisecond

// RootView is the main page's index.html, which is the container for all the
// view components, the wiring for their channels, etc.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the page's views over a stream of outbound engine events. Each websocket
// client gets its own root view, since views remember what they last drew. Ele-updates are
// batched and emitted at most once per resolution. A nil outbound builds the views for template
// rendering only; their goroutines exit when ctx is done.
func NewRootView(
	ctx context.Context,
	outbound <-chan events.Event,
	resolution time.Duration,
) (*RootView, error) {
	views, err := fastview.NewViewBuilder[events.Event, cell_views.Frame]().
		WithContext(ctx).
		WithModel(outbound, cell_views.Convert).
		WithFilter(cell_views.Frame.Drawable).
		WithView(func(
			done <-chan struct{},
			frames <-chan cell_views.Frame) fastview.ViewComponent {
			return cell_views.NewGridView(done, frames)
		}).
		WithView(func(
			done <-chan struct{},
			frames <-chan cell_views.Frame) fastview.ViewComponent {
			return cell_views.NewStatusView(done, frames)
		}).
		Build()
	if err != nil {
		return nil, err
	}

	if resolution <= 0 {
		resolution = DefaultResolution
	}
	return &RootView{
		views:   views,
		updates: fanIn(ctx.Done(), views, resolution),
	}, nil
}

// Updates returns the main ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with websocket bootstrap code, and returns its name.
// The page is executed over a cell_views.Board.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	viewTemplates := []string{}
	for _, vc := range rv.views {
		tname, parseErr := vc.Parse(parent)
		if parseErr != nil {
			return "", parseErr
		}
		viewTemplates = append(viewTemplates, tname)
	}

	// Specify the nested templates
	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += (`{{ template "` + tname + `" . }}`)
	}

	// The main template bootstraps the rest: sets up the client websocket, sends user input as
	// events and applies the server's ele-updates.
	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<style>
				body { font-family: sans-serif; }
				.grid { display: grid; gap: 1px; background: #999; width: max-content; border: 1px solid #999; }
				.cell { width: 28px; height: 28px; background: white; cursor: pointer; user-select: none;
					display: flex; align-items: center; justify-content: center; font-size: 10px; }
				.cell.wall { background: #333; }
				.cell[data-path="true"] { background: #ffe680; }
				.cell.start { background: #7fbfff; }
				.cell.goal { background: #7fdf7f; }
				.controls { margin-bottom: 8px; }
				.controls input { width: 4em; }
			</style>
		</head>
		<body>
			<div class="controls">
				<button id="compute">compute path</button>
				<button id="step">step</button>
				<input id="columns" type="number" min="1" value="{{ .Columns }}">
				x
				<input id="rows" type="number" min="1" value="{{ .Rows }}">
				<button id="redraw">redraw</button>
			</div>
			` + bodySpec + `
			<script>
				const scheme = location.protocol === "https:" ? "wss://" : "ws://";
				const ws = new WebSocket(scheme + location.host + "/ws");
				const grid = document.getElementById("grid");
				const columns = Number(grid.dataset.columns);
				const rows = Number(grid.dataset.rows);
				let start = null, goal = null;

				function send(type, data) {
					if (ws.readyState === WebSocket.OPEN) {
						ws.send(JSON.stringify({type: type, data: data || {}}));
					}
				}

				// The engine's grid is rebuilt to match this page, so every page starts clean.
				ws.onopen = function () {
					send("new-graph", {columns: columns, rows: rows});
				};

				ws.onerror = function (event) {
					console.log("WebSocket error: ", event);
				};

				// When the server pushes view updates, find these eles and update them.
				ws.onmessage = function (event) {
					const items = JSON.parse(event.data);
					for (const update of items) {
						const ele = document.getElementById(update.EleId);
						if (ele === null) {
							continue;
						}
						for (const op of update.Ops) {
							if (op.Key === "textContent") {
								ele.textContent = op.Value;
							} else {
								ele.setAttribute(op.Key, op.Value);
							}
						}
					}
				};

				function moveMarker(cls, cell) {
					for (const ele of grid.querySelectorAll("." + cls)) {
						ele.classList.remove(cls);
					}
					cell.classList.add(cls);
				}

				grid.addEventListener("click", function (event) {
					const cell = event.target.closest(".cell");
					if (cell === null) {
						return;
					}
					if (event.ctrlKey) {
						start = cell.id;
						moveMarker("start", cell);
						send("set-start", {start: start});
					} else if (event.shiftKey) {
						goal = cell.id;
						moveMarker("goal", cell);
						send("set-goal", {goal: goal});
					} else {
						const isWall = cell.classList.toggle("wall");
						send("set-wall", {cellNames: [cell.id], isWall: [isWall]});
					}
					if (start !== null && goal !== null && (event.ctrlKey || event.shiftKey)) {
						send("can-compute-path");
					}
				});

				document.getElementById("compute").onclick = function () { send("get-path"); };
				document.getElementById("step").onclick = function () { send("step"); };
				document.getElementById("redraw").onclick = function () {
					const c = document.getElementById("columns").value;
					const r = document.getElementById("rows").value;
					location.search = "?columns=" + encodeURIComponent(c) + "&rows=" + encodeURIComponent(r);
				};
			</script>
		</body></html>
	{{ end }}
	`

	_, err = parent.Parse(indexTemplate)
	return
}

// fanIn aggregates the views' ele-update channels into a single, batched channel.
func fanIn(
	done <-chan struct{},
	views []fastview.ViewComponent,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	inputs := make([]<-chan []fastview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		rate)
}

// batchify collects updates and emits them once per rate tick. Ops for the same ele-id and key
// received within a batch overwrite each other, so only the latest values are sent. A pending
// batch is flushed when source closes.
func batchify(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	rate time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		pending := &batch{}
		flush := func() bool {
			if pending.empty() {
				return true
			}
			select {
			case output <- pending.updates:
				pending = &batch{}
				return true
			case <-done:
				return false
			}
		}

		ticker := channerics.NewTicker(done, rate)
		for {
			select {
			case <-done:
				return
			case updates, ok := <-source:
				if !ok {
					flush()
					return
				}
				pending.add(updates)
			case <-ticker:
				if !flush() {
					return
				}
			}
		}
	}()

	return output
}

// batch merges ele-updates, keeping eles in first-seen order and ops in first-seen key order.
type batch struct {
	updates []fastview.EleUpdate
	index   map[string]int
}

func (b *batch) empty() bool {
	return len(b.updates) == 0
}

func (b *batch) add(updates []fastview.EleUpdate) {
	if b.index == nil {
		b.index = map[string]int{}
	}
	for _, update := range updates {
		i, ok := b.index[update.EleId]
		if !ok {
			b.index[update.EleId] = len(b.updates)
			b.updates = append(b.updates, fastview.EleUpdate{
				EleId: update.EleId,
				Ops:   append([]fastview.Op(nil), update.Ops...),
			})
			continue
		}
		b.updates[i].Ops = mergeOps(b.updates[i].Ops, update.Ops)
	}
}

func mergeOps(ops, newer []fastview.Op) []fastview.Op {
next:
	for _, op := range newer {
		for i := range ops {
			if ops[i].Key == op.Key {
				ops[i].Value = op.Value
				continue next
			}
		}
		ops = append(ops, op)
	}
	return ops
}
