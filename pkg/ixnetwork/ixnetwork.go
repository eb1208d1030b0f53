package ixnetwork

import (
	"context"
	"fmt"
	"strings"

	"github.com/takehaya/ixnrest/pkg/config"
	"github.com/takehaya/ixnrest/pkg/ixnrest"
	"github.com/takehaya/ixnrest/pkg/logger"
	"go.uber.org/zap"
)

type CancelFunc func(ctx context.Context) error

var newLogger = logger.NewLogger

// IxNetwork is an open session with its object model.
type IxNetwork struct {
	Logger        *zap.Logger
	API           API
	cleanupFnList []CancelFunc

	cfg config.Config
}

// New sets up logging and opens a session on the configured appliance.
func New(ctx context.Context, cfg config.Config) (*IxNetwork, error) {
	var cleanupFnList []CancelFunc
	lg, cleanup, err := newLogger(cfg.LoggerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed init logger: %w", err)
	}
	cleanupFnList = append(cleanupFnList, cleanup)

	client, err := ixnrest.Connect(ctx, cfg.Server.Host, cfg.Server.Port, cfg.ClientOptions(lg)...)
	if err != nil {
		for _, fn := range cleanupFnList {
			if cerr := fn(ctx); cerr != nil {
				lg.Error("failed to cleanup", zap.Error(cerr))
			}
		}
		return nil, fmt.Errorf("failed connect to %s:%d: %w", cfg.Server.Host, cfg.Server.Port, err)
	}

	return &IxNetwork{
		Logger:        lg,
		API:           client,
		cleanupFnList: cleanupFnList,
		cfg:           cfg,
	}, nil
}

// NewWithAPI wraps an already connected client.
func NewWithAPI(api API, lg *zap.Logger) *IxNetwork {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &IxNetwork{Logger: lg, API: api}
}

func (x *IxNetwork) Root() *Object {
	return NewObject(x.API, x.API.Root())
}

func (x *IxNetwork) Ports(ctx context.Context) ([]*Port, error) {
	objs, err := x.Root().Children(ctx, "vport")
	if err != nil {
		return nil, err
	}
	ports := make([]*Port, 0, len(objs))
	for _, o := range objs {
		ports = append(ports, &Port{Object: o})
	}
	return ports, nil
}

// PortByName finds the vport whose name attribute is name.
func (x *IxNetwork) PortByName(ctx context.Context, name string) (*Port, error) {
	o, err := x.Root().ObjectByName(ctx, "vport", name)
	if err != nil {
		return nil, err
	}
	return &Port{Object: o}, nil
}

func (x *IxNetwork) Topologies(ctx context.Context) ([]*Topology, error) {
	objs, err := x.Root().Children(ctx, "topology")
	if err != nil {
		return nil, err
	}
	topologies := make([]*Topology, 0, len(objs))
	for _, o := range objs {
		topologies = append(topologies, &Topology{Object: o})
	}
	return topologies, nil
}

func (x *IxNetwork) Traffic() *Traffic {
	return &Traffic{Object: NewObject(x.API, x.API.Root().Child("traffic"))}
}

func (x *IxNetwork) LoadConfig(ctx context.Context, fileName string) error {
	x.Logger.Info("loading config", zap.String("file", fileName))
	if err := x.API.LoadConfig(ctx, fileName); err != nil {
		return fmt.Errorf("failed to load config %s: %w", fileName, err)
	}
	return nil
}

func (x *IxNetwork) SaveConfig(ctx context.Context, fileName string) error {
	x.Logger.Info("saving config", zap.String("file", fileName))
	if err := x.API.SaveConfig(ctx, fileName); err != nil {
		return fmt.Errorf("failed to save config %s: %w", fileName, err)
	}
	return nil
}

// SendArpNs resolves neighbors on every interface.
func (x *IxNetwork) SendArpNs(ctx context.Context) error {
	if _, err := x.API.Execute(ctx, "sendarpall", ""); err != nil {
		return err
	}
	_, err := x.API.Execute(ctx, "sendnsall", "")
	return err
}

func (x *IxNetwork) ProtocolsStart(ctx context.Context) error {
	x.Logger.Info("starting all protocols")
	_, err := x.API.Execute(ctx, "startallprotocols", "")
	return err
}

func (x *IxNetwork) ProtocolsStop(ctx context.Context) error {
	x.Logger.Info("stopping all protocols")
	_, err := x.API.Execute(ctx, "stopallprotocols", "")
	return err
}

// ProtocolStart starts protocol (e.g. ospf, bgp) on every port.
func (x *IxNetwork) ProtocolStart(ctx context.Context, protocol string) error {
	return x.protocolAction(ctx, protocol, "start")
}

func (x *IxNetwork) ProtocolStop(ctx context.Context, protocol string) error {
	return x.protocolAction(ctx, protocol, "stop")
}

func (x *IxNetwork) protocolAction(ctx context.Context, protocol, action string) error {
	ports, err := x.Ports(ctx)
	if err != nil {
		return err
	}
	for _, p := range ports {
		ref := p.Ref.Child("protocols").Child(protocol)
		x.Logger.Debug("protocol action", zap.String("ref", ref.String()), zap.String("action", action))
		if _, err := x.API.Execute(ctx, action, ref, []ixnrest.Ref{ref}); err != nil {
			return fmt.Errorf("failed to %s %s on %s: %w", action, protocol, p.Ref, err)
		}
	}
	return nil
}

func (x *IxNetwork) Regenerate(ctx context.Context) error {
	return x.Traffic().Regenerate(ctx)
}

func (x *IxNetwork) TrafficApply(ctx context.Context) error {
	return x.Traffic().Apply(ctx)
}

func (x *IxNetwork) L23TrafficStart(ctx context.Context) error {
	x.Logger.Info("starting l23 traffic")
	return x.Traffic().Start(ctx)
}

func (x *IxNetwork) L23TrafficStop(ctx context.Context) error {
	x.Logger.Info("stopping l23 traffic")
	return x.Traffic().Stop(ctx)
}

func (x *IxNetwork) Close() {
	for _, fn := range x.cleanupFnList {
		if err := fn(context.Background()); err != nil {
			x.Logger.Error("failed to cleanup", zap.Error(err))
		}
	}
	x.Logger.Debug("ixnetwork cleanup completed")
}

// splitLocation parses chassis/card/port.
func splitLocation(location string) (string, string, string, error) {
	parts := strings.Split(location, "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid port location %q, want chassis/card/port", location)
	}
	return parts[0], parts[1], parts[2], nil
}
