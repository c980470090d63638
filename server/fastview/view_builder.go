package fastview

import (
	"context"
	"errors"

	channerics "github.com/niceyeti/channerics/channels"
)

// ViewBuilderFunc builds one view over its own copy of the view-model stream. The view's
// goroutines must exit when done is closed.
type ViewBuilderFunc[ViewModel any] func(done <-chan struct{}, models <-chan ViewModel) ViewComponent

// ViewBuilder wires a source stream, e.g. a client's outbound engine events, to a set of views
// that draw from one shared view-model. Source items are converted, optionally filtered, and
// broadcast so every view sees every kept view-model in order.
type ViewBuilder[Source any, ViewModel any] struct {
	source  <-chan Source
	convert func(Source) ViewModel
	keep    func(ViewModel) bool
	views   []ViewBuilderFunc[ViewModel]
	done    <-chan struct{}
}

var (
	// ErrNoViews is returned by Build when no view was added.
	ErrNoViews = errors.New("no views to build: WithView must be called")
	// ErrNoModel is returned by Build when WithModel was not called.
	ErrNoModel = errors.New("no model specified: WithModel must be called")
)

func NewViewBuilder[Source any, ViewModel any]() *ViewBuilder[Source, ViewModel] {
	return &ViewBuilder[Source, ViewModel]{}
}

// WithModel sets the source stream and its conversion to the view-model. A nil source is
// allowed and yields views that never update, which is enough to render their templates.
func (vb *ViewBuilder[Source, ViewModel]) WithModel(
	source <-chan Source,
	convert func(Source) ViewModel,
) *ViewBuilder[Source, ViewModel] {
	vb.source = source
	vb.convert = convert
	return vb
}

// WithFilter drops view-models for which keep returns false before they reach any view.
func (vb *ViewBuilder[Source, ViewModel]) WithFilter(
	keep func(ViewModel) bool,
) *ViewBuilder[Source, ViewModel] {
	vb.keep = keep
	return vb
}

// WithView adds a view. Build returns views in the order they were added.
func (vb *ViewBuilder[Source, ViewModel]) WithView(
	build ViewBuilderFunc[ViewModel],
) *ViewBuilder[Source, ViewModel] {
	vb.views = append(vb.views, build)
	return vb
}

// WithContext closes every downstream channel once ctx is done.
func (vb *ViewBuilder[Source, ViewModel]) WithContext(
	ctx context.Context,
) *ViewBuilder[Source, ViewModel] {
	vb.done = ctx.Done()
	return vb
}

// Build connects the stream to the views and returns them.
func (vb *ViewBuilder[Source, ViewModel]) Build() ([]ViewComponent, error) {
	if len(vb.views) == 0 {
		return nil, ErrNoViews
	}
	if vb.convert == nil {
		return nil, ErrNoModel
	}

	models := channerics.Convert(vb.done, vb.source, vb.convert)
	if vb.keep != nil {
		models = filter(vb.done, models, vb.keep)
	}

	copies := channerics.Broadcast(vb.done, models, len(vb.views))
	built := make([]ViewComponent, 0, len(vb.views))
	for i, build := range vb.views {
		built = append(built, build(vb.done, copies[i]))
	}
	return built, nil
}

func filter[T any](done <-chan struct{}, input <-chan T, keep func(T) bool) <-chan T {
	output := make(chan T)
	go func() {
		defer close(output)
		for {
			select {
			case <-done:
				return
			case item, ok := <-input:
				if !ok {
					return
				}
				if !keep(item) {
					continue
				}
				select {
				case output <- item:
				case <-done:
					return
				}
			}
		}
	}()
	return output
}
