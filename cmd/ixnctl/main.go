package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/takehaya/ixnrest/pkg/config"
	"github.com/takehaya/ixnrest/pkg/ixnetwork"
	"github.com/takehaya/ixnrest/pkg/ixnrest"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	app := newApp(version)
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("%+v", err)
	}
}

func newApp(version string) *cli.App {
	// -v is taken by --verbose
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}

	app := cli.NewApp()
	app.Name = "ixnctl"
	app.Version = fmt.Sprintf("%s, %s, %s, %s", version, commit, date, builtBy)

	app.Usage = "drive an IxNetwork appliance over its REST API"

	app.EnableBashCompletion = true
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config, c",
			Usage:  "config file path",
			EnvVar: "IXN_CONFIG",
		},
		cli.StringFlag{
			Name:  "host, H",
			Usage: "appliance host, overrides the config file",
		},
		cli.IntFlag{
			Name:  "port, p",
			Usage: "appliance REST port, overrides the config file",
		},
		cli.IntFlag{
			Name:  "verbose, v",
			Usage: "log verbosity, 1 or more enables debug",
		},
		cli.BoolFlag{
			Name:  "json",
			Usage: "log in JSON",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:   "version",
			Usage:  "print the appliance version",
			Action: withSession(runVersion),
		},
		{
			Name:   "new-config",
			Usage:  "clear the appliance configuration",
			Action: withSession(runNewConfig),
		},
		{
			Name:      "load-config",
			Usage:     "load a configuration file known to the appliance",
			ArgsUsage: "FILE",
			Action:    withSession(runLoadConfig),
		},
		{
			Name:      "save-config",
			Usage:     "save the appliance configuration to a file",
			ArgsUsage: "FILE",
			Action:    withSession(runSaveConfig),
		},
		{
			Name:      "children",
			Usage:     "list the children of an object",
			ArgsUsage: "REF TYPE",
			Action:    withSession(runChildren),
		},
		{
			Name:      "get",
			Usage:     "read an attribute",
			ArgsUsage: "REF ATTR",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "list, l", Usage: "flatten a multi-valued attribute"},
			},
			Action: withSession(runGet),
		},
		{
			Name:      "set",
			Usage:     "write attributes",
			ArgsUsage: "REF KEY=VALUE...",
			Action:    withSession(runSet),
		},
		{
			Name:      "describe",
			Usage:     "list the children, attributes and operations of an object",
			ArgsUsage: "REF",
			Action:    withSession(runDescribe),
		},
		{
			Name:      "exec",
			Usage:     "run an operation, arguments that parse as JSON are sent decoded",
			ArgsUsage: "NAME [REF] [ARGS...]",
			Action:    withSession(runExec),
		},
		{
			Name:      "reserve",
			Usage:     "connect a vport to a chassis port",
			ArgsUsage: "NAME CHASSIS/CARD/PORT",
			Flags: []cli.Flag{
				cli.BoolFlag{Name: "force, f", Usage: "take the port from its current owner"},
			},
			Action: withSession(runReserve),
		},
		{
			Name:  "protocols",
			Usage: "start or stop protocols",
			Subcommands: []cli.Command{
				{
					Name:      "start",
					ArgsUsage: "[NAME]",
					Action:    withSession(runProtocols(true)),
				},
				{
					Name:      "stop",
					ArgsUsage: "[NAME]",
					Action:    withSession(runProtocols(false)),
				},
			},
		},
		{
			Name:  "traffic",
			Usage: "control L2/3 traffic",
			Subcommands: []cli.Command{
				{Name: "regenerate", Action: withSession(runTraffic("regenerate"))},
				{Name: "apply", Action: withSession(runTraffic("apply"))},
				{Name: "start", Action: withSession(runTraffic("start"))},
				{Name: "stop", Action: withSession(runTraffic("stop"))},
			},
		},
	}
	return app
}

type sessionFunc func(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error

// withSession loads the configuration, opens a session and hands it to fn.
func withSession(fn sessionFunc) func(c *cli.Context) error {
	return func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return err
		}
		ctx := context.Background()
		x, err := ixnetwork.New(ctx, *cfg)
		if err != nil {
			return err
		}
		defer x.Close()
		return fn(ctx, c, x)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return nil, err
	}
	if c.GlobalIsSet("host") {
		cfg.Server.Host = c.GlobalString("host")
	}
	if c.GlobalIsSet("port") {
		cfg.Server.Port = c.GlobalInt("port")
	}
	if c.GlobalIsSet("verbose") {
		cfg.LoggerConfig.Verbose = c.GlobalInt("verbose")
	}
	if c.GlobalBool("json") {
		cfg.LoggerConfig.JSON = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return errors.Errorf("%s needs %d argument(s): %s", c.Command.Name, n, c.Command.ArgsUsage)
	}
	return nil
}

func runVersion(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	v, err := x.API.GetVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to read version")
	}
	fmt.Fprintln(c.App.Writer, v)
	return nil
}

func runNewConfig(ctx context.Context, _ *cli.Context, x *ixnetwork.IxNetwork) error {
	return errors.Wrap(x.API.NewConfig(ctx), "failed to clear config")
}

func runLoadConfig(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	return x.LoadConfig(ctx, c.Args().First())
}

func runSaveConfig(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	return x.SaveConfig(ctx, c.Args().First())
}

func runChildren(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	children, err := object(x, c.Args().Get(0)).Children(ctx, c.Args().Get(1))
	if err != nil {
		return err
	}
	for _, child := range children {
		fmt.Fprintln(c.App.Writer, child)
	}
	return nil
}

func runGet(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	obj := object(x, c.Args().Get(0))
	name := c.Args().Get(1)
	if c.Bool("list") {
		values, err := obj.ListAttribute(ctx, name)
		if err != nil {
			return err
		}
		for _, v := range values {
			fmt.Fprintln(c.App.Writer, v)
		}
		return nil
	}
	attr, err := obj.Attribute(ctx, name)
	if err != nil {
		return err
	}
	if attr.Omitted {
		return errors.Errorf("%s is not set on %s", name, obj)
	}
	fmt.Fprintln(c.App.Writer, attr.Raw())
	return nil
}

func runSet(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	attrs, err := parseAssignments(c.Args().Tail())
	if err != nil {
		return err
	}
	return object(x, c.Args().First()).SetAttributes(ctx, attrs)
}

func runDescribe(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	help, err := object(x, c.Args().First()).Help(ctx)
	if err != nil {
		return err
	}
	printSection(c.App.Writer, "children", help.Children)
	printSection(c.App.Writer, "attributes", help.Attributes)
	printSection(c.App.Writer, "operations", help.Operations)
	return nil
}

func runExec(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	args := c.Args()
	var ref ixnrest.Ref
	if len(args) > 1 {
		ref = operationRef(args[1])
	}
	var opArgs []any
	if len(args) > 2 {
		opArgs = parseArgs(args[2:])
	}
	result, err := x.API.Execute(ctx, args[0], ref, opArgs...)
	if err != nil {
		return errors.Wrapf(err, "failed to execute %s", args[0])
	}
	if result.Exists() {
		fmt.Fprintln(c.App.Writer, result.Raw)
	}
	return nil
}

func runReserve(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	port, err := x.PortByName(ctx, c.Args().Get(0))
	if err != nil {
		return err
	}
	return port.Reserve(ctx, c.Args().Get(1), c.Bool("force"))
}

func runProtocols(start bool) sessionFunc {
	return func(ctx context.Context, c *cli.Context, x *ixnetwork.IxNetwork) error {
		name := c.Args().First()
		switch {
		case name == "" && start:
			return x.ProtocolsStart(ctx)
		case name == "":
			return x.ProtocolsStop(ctx)
		case start:
			return x.ProtocolStart(ctx, name)
		default:
			return x.ProtocolStop(ctx, name)
		}
	}
}

func runTraffic(action string) sessionFunc {
	return func(ctx context.Context, _ *cli.Context, x *ixnetwork.IxNetwork) error {
		switch action {
		case "regenerate":
			return x.Regenerate(ctx)
		case "apply":
			return x.TrafficApply(ctx)
		case "start":
			return x.L23TrafficStart(ctx)
		case "stop":
			return x.L23TrafficStop(ctx)
		}
		return errors.Errorf("unknown traffic action %q", action)
	}
}

// object resolves a command line reference. "root" and "" name the root object.
func object(x *ixnetwork.IxNetwork, ref string) *ixnetwork.Object {
	if ref == "" || ref == "root" {
		return x.Root()
	}
	return ixnetwork.NewObject(x.API, ixnrest.Ref(ref))
}

// operationRef maps "root" to the empty reference, which resolves to the
// root operations.
func operationRef(ref string) ixnrest.Ref {
	if ref == "root" {
		return ""
	}
	return ixnrest.Ref(ref)
}

func parseAssignments(pairs []string) (map[string]any, error) {
	attrs := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, errors.Errorf("invalid assignment %q, want KEY=VALUE", pair)
		}
		attrs[k] = parseValue(v)
	}
	return attrs, nil
}

func parseArgs(raw []string) []any {
	args := make([]any, 0, len(raw))
	for _, r := range raw {
		args = append(args, parseValue(r))
	}
	return args
}

// parseValue decodes s when it is JSON and keeps it as a string otherwise.
func parseValue(s string) any {
	if gjson.Valid(s) {
		return gjson.Parse(s).Value()
	}
	return s
}

func printSection(w io.Writer, title string, names []string) {
	fmt.Fprintf(w, "%s:\n", title)
	for _, n := range names {
		fmt.Fprintf(w, "  %s\n", n)
	}
}
