package ixnrest

import (
	"github.com/tidwall/gjson"
)

// Shape is the top-level form of a decoded response body.
type Shape int

const (
	ShapeEmpty Shape = iota
	ShapeScalar
	ShapeObject
	ShapeList
)

func (s Shape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeObject:
		return "object"
	case ShapeList:
		return "list"
	default:
		return "empty"
	}
}

// ShapeOf classifies a parsed JSON value.
func ShapeOf(v gjson.Result) Shape {
	switch {
	case !v.Exists() || v.Type == gjson.Null:
		return ShapeEmpty
	case v.IsArray():
		return ShapeList
	case v.IsObject():
		return ShapeObject
	default:
		return ShapeScalar
	}
}

// Response is a raw appliance response.
type Response struct {
	Verb       string
	URL        string
	StatusCode int
	Body       []byte
}

// JSON parses the body. An empty or invalid body yields a non-existent result.
func (r *Response) JSON() gjson.Result {
	if len(r.Body) == 0 || !gjson.ValidBytes(r.Body) {
		return gjson.Result{}
	}
	return gjson.ParseBytes(r.Body)
}

func (r *Response) Shape() Shape {
	return ShapeOf(r.JSON())
}

// Get reads a gjson path from the body.
func (r *Response) Get(path string) gjson.Result {
	return r.JSON().Get(path)
}

// first returns the object a response describes: the value itself for an
// object and the first element for a list.
func first(v gjson.Result) gjson.Result {
	switch ShapeOf(v) {
	case ShapeObject:
		return v
	case ShapeList:
		return v.Get("0")
	default:
		return gjson.Result{}
	}
}

// each returns the objects a response describes: every element of a list or
// the single object.
func each(v gjson.Result) []gjson.Result {
	switch ShapeOf(v) {
	case ShapeObject:
		return []gjson.Result{v}
	case ShapeList:
		return v.Array()
	default:
		return nil
	}
}
