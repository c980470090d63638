// Package fastview builds simple server-side views: an input data model is converted to a
// view-model, multiplexed to one or more views, and each view emits element updates that a
// websocket client applies to the page.
package fastview

import (
	"html/template"
)

// EleUpdate is an element identifier and a set of operations to apply to its attributes/content.
type EleUpdate struct {
	// The id by which to find the element
	EleId string
	// Op keys are attribute names or 'textContent'. ('class','cell wall') sets the class attribute;
	// ('textContent','12') sets the element's text.
	Ops []Op
}

// Op is a key and value. For example an html attribute and its new value.
type Op struct {
	Key   string
	Value string
}

// TextContent is the reserved op key for an element's text.
const TextContent = "textContent"

// ViewComponent is a server side view: Updates is the chan of ele-updates it emits, and Parse
// adds its initial markup to a parent template and returns the name it was defined under.
type ViewComponent interface {
	Updates() <-chan []EleUpdate
	Parse(*template.Template) (string, error)
}
