package ixnetwork

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/takehaya/ixnrest/pkg/config"
	"github.com/takehaya/ixnrest/pkg/ixnrest"
	"github.com/takehaya/ixnrest/pkg/logger"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const root = ixnrest.Ref("/api/v1/sessions/1/ixnetwork")

type call struct {
	Name string
	Ref  ixnrest.Ref
	Args []any
}

// fakeAPI records executed operations and serves a static object tree.
type fakeAPI struct {
	calls      []call
	children   map[ixnrest.Ref][]ixnrest.Ref
	attributes map[ixnrest.Ref]map[string]string
	failOn     string
	loaded     string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		children:   map[ixnrest.Ref][]ixnrest.Ref{},
		attributes: map[ixnrest.Ref]map[string]string{},
	}
}

func (f *fakeAPI) Root() ixnrest.Ref { return root }

func (f *fakeAPI) Execute(_ context.Context, name string, ref ixnrest.Ref, args ...any) (gjson.Result, error) {
	f.calls = append(f.calls, call{Name: name, Ref: ref, Args: args})
	if name == f.failOn {
		return gjson.Result{}, &ixnrest.OperationError{Message: name + " failed"}
	}
	return gjson.Parse(`null`), nil
}

func (f *fakeAPI) GetChildren(_ context.Context, ref ixnrest.Ref, childType string) ([]ixnrest.Ref, error) {
	return f.children[ref.Child(childType)], nil
}

func (f *fakeAPI) GetAttribute(_ context.Context, ref ixnrest.Ref, name string) (ixnrest.Attribute, error) {
	v, ok := f.attributes[ref][name]
	if !ok {
		return ixnrest.Attribute{Name: name, Omitted: true}, nil
	}
	body := `{"` + name + `":` + strconv.Quote(v) + `}`
	return attributeFrom(body, name), nil
}

func (f *fakeAPI) GetListAttribute(ctx context.Context, ref ixnrest.Ref, name string) ([]any, error) {
	attr, err := f.GetAttribute(ctx, ref, name)
	if err != nil {
		return nil, err
	}
	return attr.List(), nil
}

func (f *fakeAPI) SetAttributes(_ context.Context, ref ixnrest.Ref, attributes map[string]any) error {
	for k, v := range attributes {
		if f.attributes[ref] == nil {
			f.attributes[ref] = map[string]string{}
		}
		f.attributes[ref][k] = v.(string)
	}
	return nil
}

func (f *fakeAPI) Add(_ context.Context, parent ixnrest.Ref, objType string, _ map[string]any) (ixnrest.Ref, error) {
	ref := parent.Child(objType).Child(strconv.Itoa(len(f.children[parent.Child(objType)]) + 1))
	f.children[parent.Child(objType)] = append(f.children[parent.Child(objType)], ref)
	return ref, nil
}

func (f *fakeAPI) Introspect(context.Context, ixnrest.Ref) (ixnrest.Introspection, error) {
	return ixnrest.Introspection{Children: []string{"vport"}}, nil
}

func (f *fakeAPI) LoadConfig(_ context.Context, fileName string) error {
	f.loaded = fileName
	return nil
}

func (f *fakeAPI) SaveConfig(context.Context, string) error { return errors.New("disk full") }

func (f *fakeAPI) NewConfig(context.Context) error { return nil }

func (f *fakeAPI) GetVersion(context.Context) (string, error) { return "9.30", nil }

func (f *fakeAPI) Regenerate(ctx context.Context, traffic ixnrest.Ref) error {
	_, err := f.Execute(ctx, "generateifrequired", traffic, traffic)
	return err
}

func (f *fakeAPI) StartStatelessTraffic(ctx context.Context, traffic ixnrest.Ref, items []ixnrest.Ref) error {
	_, err := f.Execute(ctx, "startstatelesstraffic", traffic, items)
	return err
}

func (f *fakeAPI) StopStatelessTraffic(ctx context.Context, traffic ixnrest.Ref, items []ixnrest.Ref) error {
	_, err := f.Execute(ctx, "stopstatelesstraffic", traffic, items)
	return err
}

// attributeFrom reads name from body through a throwaway appliance, since
// Attribute values are only built by the client.
func attributeFrom(body, name string) ixnrest.Attribute {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()
	c := ixnrest.NewClient(ixnrest.Session{ServerURL: srv.URL, SessionPath: "/", RootURL: srv.URL + "/"})
	attr, _ := c.GetAttribute(context.Background(), "/obj", name)
	return attr
}

func twoPorts(f *fakeAPI) {
	f.children[root.Child("vport")] = []ixnrest.Ref{root + "/vport/1", root + "/vport/2"}
	f.attributes[root+"/vport/1"] = map[string]string{"name": "Port 1"}
	f.attributes[root+"/vport/2"] = map[string]string{"name": "Port 2"}
}

func TestPortByNameAndReserve(t *testing.T) {
	f := newFakeAPI()
	twoPorts(f)
	x := NewWithAPI(f, nil)
	ctx := context.Background()

	port, err := x.PortByName(ctx, "Port 2")
	require.NoError(t, err)
	assert.Equal(t, root+"/vport/2", port.Ref)

	require.NoError(t, port.Reserve(ctx, "10.10.10.10/1/7", true))
	last := f.calls[len(f.calls)-1]
	assert.Equal(t, "assignports", last.Name)
	assert.Equal(t, ixnrest.Ref(""), last.Ref)
	assert.Equal(t, []any{
		[]map[string]string{{"arg1": "10.10.10.10", "arg2": "1", "arg3": "7"}},
		[]ixnrest.Ref{},
		[]ixnrest.Ref{root + "/vport/2"},
		true,
	}, last.Args)

	require.NoError(t, port.Release(ctx))
	last = f.calls[len(f.calls)-1]
	assert.Equal(t, call{Name: "releaseport", Ref: root + "/vport/2", Args: []any{[]ixnrest.Ref{root + "/vport/2"}}}, last)

	require.NoError(t, port.SendArp(ctx))
	require.NoError(t, port.SendNs(ctx))
	assert.Equal(t, "sendarp", f.calls[len(f.calls)-2].Name)
	assert.Equal(t, call{Name: "sendns", Ref: root + "/vport/2", Args: []any{[]ixnrest.Ref{root + "/vport/2"}}}, f.calls[len(f.calls)-1])

	assert.ErrorContains(t, port.Reserve(ctx, "10.10.10.10/1", false), "chassis/card/port")

	_, err = x.PortByName(ctx, "Port 9")
	assert.ErrorContains(t, err, `no vport named "Port 9"`)
}

func TestProtocolActions(t *testing.T) {
	f := newFakeAPI()
	twoPorts(f)
	x := NewWithAPI(f, nil)
	ctx := context.Background()

	require.NoError(t, x.ProtocolsStart(ctx))
	require.NoError(t, x.ProtocolStart(ctx, "ospf"))
	require.NoError(t, x.SendArpNs(ctx))
	require.NoError(t, x.ProtocolsStop(ctx))

	names := []string{}
	for _, c := range f.calls {
		names = append(names, c.Name+" "+c.Ref.String())
	}
	assert.Equal(t, []string{
		"startallprotocols ",
		"start " + string(root) + "/vport/1/protocols/ospf",
		"start " + string(root) + "/vport/2/protocols/ospf",
		"sendarpall ",
		"sendnsall ",
		"stopallprotocols ",
	}, names)

	f.failOn = "stop"
	err := x.ProtocolStop(ctx, "bgp")
	var opErr *ixnrest.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.ErrorContains(t, err, "vport/1")
}

func TestTopologies(t *testing.T) {
	f := newFakeAPI()
	f.children[root.Child("topology")] = []ixnrest.Ref{root + "/topology/1"}
	f.attributes[root+"/topology/1"] = map[string]string{"status": "started"}
	x := NewWithAPI(f, nil)
	ctx := context.Background()

	topologies, err := x.Topologies(ctx)
	require.NoError(t, err)
	require.Len(t, topologies, 1)

	status, err := topologies[0].Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "started", status)

	require.NoError(t, topologies[0].Start(ctx))
	require.NoError(t, topologies[0].Stop(ctx))
	assert.Equal(t, call{Name: "stop", Ref: root + "/topology/1", Args: []any{[]ixnrest.Ref{root + "/topology/1"}}}, f.calls[1])
}

func TestTraffic(t *testing.T) {
	f := newFakeAPI()
	traffic := root.Child("traffic")
	f.children[traffic.Child("trafficItem")] = []ixnrest.Ref{traffic + "/trafficItem/1"}
	x := NewWithAPI(f, nil)
	ctx := context.Background()

	require.NoError(t, x.Regenerate(ctx))
	require.NoError(t, x.TrafficApply(ctx))
	require.NoError(t, x.L23TrafficStart(ctx))
	require.NoError(t, x.L23TrafficStop(ctx))

	items, err := x.Traffic().Items(ctx)
	require.NoError(t, err)
	require.NoError(t, x.Traffic().StartStateless(ctx, items))
	require.NoError(t, x.Traffic().StopStateless(ctx, items))

	assert.Equal(t, []call{
		{Name: "generateifrequired", Ref: traffic, Args: []any{traffic}},
		{Name: "apply", Ref: traffic, Args: []any{traffic}},
		{Name: "start", Ref: traffic, Args: []any{traffic}},
		{Name: "stop", Ref: traffic, Args: []any{traffic}},
		{Name: "startstatelesstraffic", Ref: traffic, Args: []any{[]ixnrest.Ref{traffic + "/trafficItem/1"}}},
		{Name: "stopstatelesstraffic", Ref: traffic, Args: []any{[]ixnrest.Ref{traffic + "/trafficItem/1"}}},
	}, f.calls)
}

func TestObject(t *testing.T) {
	f := newFakeAPI()
	x := NewWithAPI(f, nil)
	ctx := context.Background()

	port, err := x.Root().Add(ctx, "vport", map[string]any{"name": "Port 1"})
	require.NoError(t, err)
	assert.Equal(t, root+"/vport/1", port.Ref)
	require.NoError(t, port.SetAttributes(ctx, map[string]any{"name": "Port A"}))

	attr, err := port.Attribute(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "Port A", attr.String())

	values, err := port.ListAttribute(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []any{"Port A"}, values)

	attr, err = port.Attribute(ctx, "rxMode")
	require.NoError(t, err)
	assert.True(t, attr.Omitted)

	child, err := x.Root().Child(ctx, "topology", "vport")
	require.NoError(t, err)
	assert.Equal(t, port.Ref, child.Ref)
	_, err = x.Root().Child(ctx, "topology")
	assert.Error(t, err)

	help, err := x.Root().Help(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vport"}, help.Children)
	assert.Equal(t, string(root), x.Root().String())
}

func TestConfigFiles(t *testing.T) {
	f := newFakeAPI()
	x := NewWithAPI(f, nil)
	ctx := context.Background()

	require.NoError(t, x.LoadConfig(ctx, "test_config.ixncfg"))
	assert.Equal(t, "test_config.ixncfg", f.loaded)
	assert.ErrorContains(t, x.SaveConfig(ctx, "out.ixncfg"), "disk full")
}

func TestNewConnects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/api/v1/sessions" {
			w.Write([]byte(`{"links":[{"href":"/api/v1/sessions/4"}]}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Server.Host = u.Hostname()
	cfg.Server.Port = port
	cfg.LoggerConfig.Quiet = true

	x, err := New(context.Background(), *cfg)
	require.NoError(t, err)
	defer x.Close()
	assert.Equal(t, ixnrest.Ref("/api/v1/sessions/4/ixnetwork"), x.Root().Ref)

	srv.Close()
	_, err = New(context.Background(), *cfg)
	assert.ErrorContains(t, err, "failed connect")
}

func TestNewReleasesLoggerWhenConnectFails(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	srv.Close()

	cleaned := 0
	orig := newLogger
	newLogger = func(logger.Config) (*zap.Logger, func(context.Context) error, error) {
		return zap.NewNop(), func(context.Context) error {
			cleaned++
			return nil
		}, nil
	}
	t.Cleanup(func() { newLogger = orig })

	cfg := config.Default()
	cfg.Server.Host = u.Hostname()
	cfg.Server.Port = port

	_, err = New(context.Background(), *cfg)
	require.ErrorContains(t, err, "failed connect")
	assert.Equal(t, 1, cleaned)
}
