package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/hourglass-app/hourglass/internal/backend"
	"github.com/hourglass-app/hourglass/internal/config"
	"github.com/hourglass-app/hourglass/internal/errors"
)

func usageError(msg string) error {
	return errors.NewBuilder(errors.CodeUsage, msg).
		WithSuggestion("Run 'hourglass help' for usage").
		Build()
}

// manager returns a Manager for the config file without loading it.
func (c *cli) manager() *config.Manager {
	return config.NewManager(
		config.NewFileStore(config.Location(c.dirs)),
		c.dirs,
		config.WithLogger(c.log.Named("config")),
	)
}

func (c *cli) runConfig(args []string) error {
	if len(args) == 0 {
		return usageError("config needs a subcommand")
	}

	switch args[0] {
	case "show":
		return c.configShow(args[1:])
	case "get":
		return c.configGet(args[1:])
	case "set":
		return c.configSet(args[1:])
	case "keys":
		for _, key := range config.Keys() {
			section, _ := config.SectionOf(key)
			fmt.Fprintf(c.stdout, "%s\t%s\n", section, key)
		}
		return nil
	case "stores":
		for _, name := range backend.Names() {
			fmt.Fprintf(c.stdout, "%s\t%s\n", name, backend.Describe(name))
		}
		return nil
	case "path":
		fmt.Fprintln(c.stdout, config.Location(c.dirs))
		return nil
	case "reset":
		// No Reload: reset must work on a file that no longer parses.
		m := c.manager()
		defer m.Close()
		if err := m.Save(config.Default(c.dirs)); err != nil {
			return err
		}
		fmt.Fprintf(c.stdout, "Restored defaults in %s\n", m.Store().Path())
		return nil
	case "watch":
		return c.configWatch()
	default:
		return errors.NewBuilder(errors.CodeUnknownCommand, "unknown config subcommand").
			WithContext("command", args[0]).
			WithSuggestion("Run 'hourglass help' for usage").
			Build()
	}
}

func (c *cli) configShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", "ini", "output format: ini or yaml")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}

	m := c.manager()
	defer m.Close()
	cfg, err := m.Reload()
	if err != nil {
		return err
	}
	file := config.Encode(cfg)

	switch *format {
	case "ini":
		data, err := config.Render(file)
		if err != nil {
			return err
		}
		_, err = c.stdout.Write(data)
		return err
	case "yaml":
		enc := yaml.NewEncoder(c.stdout)
		enc.SetIndent(2)
		if err := enc.Encode(yamlDocument(file)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return usageError("unknown format " + *format)
	}
}

// yamlDocument mirrors file as a YAML mapping of sections, keeping the
// file's key order.
func yamlDocument(file *ini.File) *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, sec := range file.Sections() {
		if len(sec.Keys()) == 0 {
			continue
		}
		keys := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range sec.Keys() {
			keys.Content = append(keys.Content, scalar(k.Name()), scalar(k.Value()))
		}
		root.Content = append(root.Content, scalar(sec.Name()), keys)
	}
	return &yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{root}}
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: v}
}

func (c *cli) configGet(args []string) error {
	if len(args) != 1 {
		return usageError("config get needs exactly one key")
	}

	m := c.manager()
	defer m.Close()
	cfg, err := m.Reload()
	if err != nil {
		return err
	}

	value, err := config.Get(cfg, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(c.stdout, value)
	return nil
}

func (c *cli) configSet(args []string) error {
	if len(args) == 0 || len(args)%2 != 0 {
		return usageError("config set needs key/value pairs")
	}

	pairs := make([][2]string, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		pairs = append(pairs, [2]string{args[i], args[i+1]})
	}

	m := c.manager()
	defer m.Close()
	cfg, err := m.Reload()
	if err != nil {
		return err
	}

	next, err := config.Apply(cfg, pairs)
	if err != nil {
		return err
	}
	if err := config.Validate(next); err != nil {
		return err
	}
	if err := m.Save(next.Normalize()); err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Saved %s\n", m.Store().Path())
	return nil
}

func (c *cli) configWatch() error {
	a, err := c.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Registered after the App's own observer, so Current is fresh here.
	a.Manager.Subscribe(func() {
		cfg := a.Manager.Current()
		fmt.Fprintf(c.stdout, "config changed: store=%s engine=%s day_start=%s\n",
			cfg.Store, cfg.DB.Engine, cfg.DayStart)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(c.stdout, "Watching %s, press Ctrl-C to stop\n", a.Manager.Store().Path())
	return a.Watch(ctx)
}
