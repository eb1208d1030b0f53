package ixnrest

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// Ref is an opaque path to a node of the appliance's object tree.
type Ref string

func (r Ref) String() string { return string(r) }

// Child is the reference of the collection or singleton named name under r.
func (r Ref) Child(name string) Ref {
	return Ref(string(r) + "/" + name)
}

var ErrNoReference = errors.New("response carries no links")

// ExtractRef reads links[0].href from a response body. For a list the first
// element is used.
func ExtractRef(body []byte) (Ref, error) {
	if !gjson.ValidBytes(body) {
		return "", ErrNoReference
	}
	return refOf(first(gjson.ParseBytes(body)))
}

func refOf(obj gjson.Result) (Ref, error) {
	href := obj.Get("links.0.href")
	if !href.Exists() || href.String() == "" {
		return "", ErrNoReference
	}
	return Ref(href.String()), nil
}

// GetChildren lists the references of ref's children of type childType.
func (c *Client) GetChildren(ctx context.Context, ref Ref, childType string) ([]Ref, error) {
	resp, err := c.Get(ctx, c.session.URL(ref.Child(childType)))
	if err != nil {
		return nil, err
	}
	objs := each(resp.JSON())
	refs := make([]Ref, 0, len(objs))
	for _, obj := range objs {
		r, err := refOf(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s child of %s: %w", childType, ref, err)
		}
		refs = append(refs, r)
	}
	return refs, nil
}

// Attribute is one attribute as read from the appliance. The appliance omits
// attributes that hold their default no-op value; those are reported with
// Omitted set rather than as an error.
type Attribute struct {
	Name    string
	Omitted bool
	raw     gjson.Result
}

// Value returns the decoded value, nil when omitted.
func (a Attribute) Value() any {
	if a.Omitted {
		return nil
	}
	return a.raw.Value()
}

func (a Attribute) String() string {
	return a.raw.String()
}

func (a Attribute) Bool() bool {
	return a.raw.Bool()
}

func (a Attribute) Int() int64 {
	return a.raw.Int()
}

// Raw is the attribute's JSON text.
func (a Attribute) Raw() string {
	return a.raw.Raw
}

// List normalizes the attribute into a flat list of scalars. The appliance
// uses three encodings for multi-valued attributes: a keyed mapping whose
// values are lists, a list of lists, and a flat list. The first element of
// each inner list carries the value.
func (a Attribute) List() []any {
	if a.Omitted {
		return []any{}
	}
	switch ShapeOf(a.raw) {
	case ShapeObject:
		return firstOfEach(a.raw)
	case ShapeList:
		if ShapeOf(a.raw.Get("0")) == ShapeList {
			return firstOfEach(a.raw)
		}
		return flat(a.raw)
	case ShapeScalar:
		return []any{a.raw.Value()}
	default:
		return []any{}
	}
}

func firstOfEach(v gjson.Result) []any {
	values := []any{}
	v.ForEach(func(_, inner gjson.Result) bool {
		if ShapeOf(inner) == ShapeList {
			values = append(values, inner.Get("0").Value())
		} else {
			values = append(values, inner.Value())
		}
		return true
	})
	return values
}

func flat(v gjson.Result) []any {
	values := []any{}
	for _, item := range v.Array() {
		values = append(values, item.Value())
	}
	return values
}

// GetAttribute reads attribute name of ref.
func (c *Client) GetAttribute(ctx context.Context, ref Ref, name string) (Attribute, error) {
	resp, err := c.Get(ctx, c.session.URL(ref))
	if err != nil {
		return Attribute{}, err
	}
	return attributeOf(resp.JSON(), name), nil
}

func attributeOf(obj gjson.Result, name string) Attribute {
	v := first(obj).Get(gjson.Escape(name))
	if !v.Exists() {
		return Attribute{Name: name, Omitted: true}
	}
	return Attribute{Name: name, raw: v}
}

// GetListAttribute reads attribute name of ref as a flat list.
func (c *Client) GetListAttribute(ctx context.Context, ref Ref, name string) ([]any, error) {
	attr, err := c.GetAttribute(ctx, ref, name)
	if err != nil {
		return nil, err
	}
	return attr.List(), nil
}

// Introspection lists what an object exposes.
type Introspection struct {
	Children   []string
	Attributes []string
	Operations []string
}

// Introspect asks the appliance which children, attributes and operations
// ref supports.
func (c *Client) Introspect(ctx context.Context, ref Ref) (Introspection, error) {
	resp, err := c.Options(ctx, c.session.URL(ref))
	if err != nil {
		return Introspection{}, err
	}
	custom := first(resp.JSON()).Get("custom")
	return Introspection{
		Children:   names(custom.Get("children"), "name"),
		Attributes: names(custom.Get("attributes"), "name"),
		Operations: names(custom.Get("operations"), "operation"),
	}, nil
}

func names(list gjson.Result, field string) []string {
	out := []string{}
	for _, item := range list.Array() {
		out = append(out, item.Get(field).String())
	}
	return out
}
