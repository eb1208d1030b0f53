package ixnetwork

import (
	"context"
	"fmt"

	"github.com/takehaya/ixnrest/pkg/ixnrest"
	"github.com/tidwall/gjson"
)

// API is the part of the REST client the object model relies on.
type API interface {
	Root() ixnrest.Ref
	Execute(ctx context.Context, name string, ref ixnrest.Ref, args ...any) (gjson.Result, error)
	GetChildren(ctx context.Context, ref ixnrest.Ref, childType string) ([]ixnrest.Ref, error)
	GetAttribute(ctx context.Context, ref ixnrest.Ref, name string) (ixnrest.Attribute, error)
	GetListAttribute(ctx context.Context, ref ixnrest.Ref, name string) ([]any, error)
	SetAttributes(ctx context.Context, ref ixnrest.Ref, attributes map[string]any) error
	Add(ctx context.Context, parent ixnrest.Ref, objType string, attributes map[string]any) (ixnrest.Ref, error)
	Introspect(ctx context.Context, ref ixnrest.Ref) (ixnrest.Introspection, error)
	LoadConfig(ctx context.Context, fileName string) error
	SaveConfig(ctx context.Context, fileName string) error
	NewConfig(ctx context.Context) error
	GetVersion(ctx context.Context) (string, error)
	Regenerate(ctx context.Context, traffic ixnrest.Ref) error
	StartStatelessTraffic(ctx context.Context, traffic ixnrest.Ref, items []ixnrest.Ref) error
	StopStatelessTraffic(ctx context.Context, traffic ixnrest.Ref, items []ixnrest.Ref) error
}

var _ API = &ixnrest.Client{}

// Object is a node of the configuration tree.
type Object struct {
	api API
	Ref ixnrest.Ref
}

func NewObject(api API, ref ixnrest.Ref) *Object {
	return &Object{api: api, Ref: ref}
}

func (o *Object) String() string {
	return o.Ref.String()
}

// Children returns all children of childType.
func (o *Object) Children(ctx context.Context, childType string) ([]*Object, error) {
	refs, err := o.api.GetChildren(ctx, o.Ref, childType)
	if err != nil {
		return nil, err
	}
	objs := make([]*Object, 0, len(refs))
	for _, ref := range refs {
		objs = append(objs, NewObject(o.api, ref))
	}
	return objs, nil
}

// Child returns the first child of the first of childTypes that has one.
func (o *Object) Child(ctx context.Context, childTypes ...string) (*Object, error) {
	for _, childType := range childTypes {
		children, err := o.Children(ctx, childType)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			return children[0], nil
		}
	}
	return nil, fmt.Errorf("%s has no child of type %v", o.Ref, childTypes)
}

// ObjectByName finds the child of childType whose name attribute is name.
func (o *Object) ObjectByName(ctx context.Context, childType, name string) (*Object, error) {
	children, err := o.Children(ctx, childType)
	if err != nil {
		return nil, err
	}
	for _, child := range children {
		attr, err := child.Attribute(ctx, "name")
		if err != nil {
			return nil, err
		}
		if !attr.Omitted && attr.String() == name {
			return child, nil
		}
	}
	return nil, fmt.Errorf("no %s named %q under %s", childType, name, o.Ref)
}

func (o *Object) Attribute(ctx context.Context, name string) (ixnrest.Attribute, error) {
	return o.api.GetAttribute(ctx, o.Ref, name)
}

func (o *Object) ListAttribute(ctx context.Context, name string) ([]any, error) {
	return o.api.GetListAttribute(ctx, o.Ref, name)
}

func (o *Object) SetAttributes(ctx context.Context, attributes map[string]any) error {
	return o.api.SetAttributes(ctx, o.Ref, attributes)
}

// Add creates a child of objType.
func (o *Object) Add(ctx context.Context, objType string, attributes map[string]any) (*Object, error) {
	ref, err := o.api.Add(ctx, o.Ref, objType, attributes)
	if err != nil {
		return nil, err
	}
	return NewObject(o.api, ref), nil
}

// Execute runs operation name on this object with the object itself as the
// first argument, the way the appliance's per-object operations expect.
func (o *Object) Execute(ctx context.Context, name string, args ...any) (gjson.Result, error) {
	return o.api.Execute(ctx, name, o.Ref, append([]any{o.Ref}, args...)...)
}

func (o *Object) Help(ctx context.Context) (ixnrest.Introspection, error) {
	return o.api.Introspect(ctx, o.Ref)
}

// Port is a virtual port (vport).
type Port struct {
	*Object
}

// Reserve connects the port to location, given as chassis/card/port.
func (p *Port) Reserve(ctx context.Context, location string, force bool) error {
	chassis, card, port, err := splitLocation(location)
	if err != nil {
		return err
	}
	_, err = p.api.Execute(ctx, "assignports", "",
		[]map[string]string{{"arg1": chassis, "arg2": card, "arg3": port}},
		[]ixnrest.Ref{},
		[]ixnrest.Ref{p.Ref},
		force,
	)
	if err != nil {
		return fmt.Errorf("failed to reserve %s on %s: %w", p.Ref, location, err)
	}
	return nil
}

// Release disconnects the port from its hardware.
func (p *Port) Release(ctx context.Context) error {
	_, err := p.api.Execute(ctx, "releaseport", p.Ref, []ixnrest.Ref{p.Ref})
	return err
}

func (p *Port) SendArp(ctx context.Context) error {
	_, err := p.api.Execute(ctx, "sendarp", p.Ref, []ixnrest.Ref{p.Ref})
	return err
}

func (p *Port) SendNs(ctx context.Context) error {
	_, err := p.api.Execute(ctx, "sendns", p.Ref, []ixnrest.Ref{p.Ref})
	return err
}

// Topology is an NGPF topology.
type Topology struct {
	*Object
}

func (t *Topology) Start(ctx context.Context) error {
	_, err := t.api.Execute(ctx, "start", t.Ref, []ixnrest.Ref{t.Ref})
	return err
}

func (t *Topology) Stop(ctx context.Context) error {
	_, err := t.api.Execute(ctx, "stop", t.Ref, []ixnrest.Ref{t.Ref})
	return err
}

// Status reads the topology's status attribute, e.g. started or notStarted.
func (t *Topology) Status(ctx context.Context) (string, error) {
	attr, err := t.Attribute(ctx, "status")
	if err != nil {
		return "", err
	}
	return attr.String(), nil
}

// Traffic is the root traffic object.
type Traffic struct {
	*Object
}

func (t *Traffic) Items(ctx context.Context) ([]*Object, error) {
	return t.Children(ctx, "trafficItem")
}

func (t *Traffic) Regenerate(ctx context.Context) error {
	return t.api.Regenerate(ctx, t.Ref)
}

func (t *Traffic) Apply(ctx context.Context) error {
	_, err := t.Execute(ctx, "apply")
	return err
}

func (t *Traffic) Start(ctx context.Context) error {
	_, err := t.Execute(ctx, "start")
	return err
}

func (t *Traffic) Stop(ctx context.Context) error {
	_, err := t.Execute(ctx, "stop")
	return err
}

func (t *Traffic) StartStateless(ctx context.Context, items []*Object) error {
	return t.api.StartStatelessTraffic(ctx, t.Ref, refs(items))
}

func (t *Traffic) StopStateless(ctx context.Context, items []*Object) error {
	return t.api.StopStatelessTraffic(ctx, t.Ref, refs(items))
}

func refs(objs []*Object) []ixnrest.Ref {
	out := make([]ixnrest.Ref, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Ref)
	}
	return out
}
