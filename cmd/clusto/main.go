package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/diwise/clusto-client/pkg/clusto/client"
	"github.com/diwise/clusto-client/pkg/clusto/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
)

const serviceName string = "clusto"

var errUsage = errors.New("usage: clusto [flags] get-by-name <name> | get <name> | get-all <type> | get-entities [type...] | get-from-pools <pool...>")

func main() {
	flags, args := parseExternalConfig(os.Args[1:])

	cfg, err := loadConfig(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	ctx, log, cleanup := o11y.Init(context.Background(), serviceName, buildinfo.SourceVersion(), cfg.LogFormat)
	defer cleanup()

	c, err := client.New(ctx, cfg.URL, client.Debug(strconv.FormatBool(cfg.Debug)))
	if err != nil {
		log.Error("failed to create clusto client", "err", err.Error())
		os.Exit(1)
	}

	err = run(ctx, c, args, os.Stdout)
	if err != nil {
		log.Error("command failed", "err", err.Error())
		os.Exit(1)
	}
}

func parseExternalConfig(args []string) (FlagMap, []string) {
	flags := FlagMap{}

	fs := flag.NewFlagSet(serviceName, flag.ExitOnError)

	apply := func(f FlagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	fs.Func("url", "base url of the clusto service (defaults to $CLUSTO_URL)", apply(clustoURL))
	fs.Func("config", "path to a yaml config file", apply(configPath))
	fs.Func("log-format", "log format, json or text", apply(logFormat))
	fs.BoolFunc("debug", "log failed requests", func(string) error {
		flags[debug] = "true"
		return nil
	})

	fs.Parse(args)

	return flags, fs.Args()
}

func loadConfig(flags FlagMap) (*Config, error) {
	cfg := &Config{}

	if path, ok := flags[configPath]; ok {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		cfg, err = LoadConfiguration(f)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.merge(flags)

	return cfg, nil
}

func run(ctx context.Context, c client.ClustoClient, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	var result any
	var err error

	cmd, params := args[0], args[1:]

	switch cmd {
	case "get-by-name":
		if len(params) != 1 {
			return errUsage
		}
		var e *client.Entity
		e, err = c.GetByName(ctx, params[0])
		if err == nil {
			result = e.Descriptor()
		}
	case "get":
		if len(params) != 1 {
			return errUsage
		}
		var entities []*client.Entity
		entities, err = c.Get(ctx, params[0])
		result = descriptors(entities)
	case "get-all":
		if len(params) != 1 {
			return errUsage
		}
		result, err = c.GetAll(ctx, params[0])
	case "get-entities":
		filters := []client.EntityFilterFunc{}
		if len(params) > 0 {
			filters = append(filters, client.ClustoTypes(params...))
		}
		var entities []*client.Entity
		entities, err = c.GetEntities(ctx, filters...)
		result = paths(entities)
	case "get-from-pools":
		if len(params) == 0 {
			return errUsage
		}
		var entities []*client.Entity
		entities, err = c.GetFromPools(ctx, params)
		result = paths(entities)
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}

	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func descriptors(entities []*client.Entity) []types.EntityDescriptor {
	result := make([]types.EntityDescriptor, 0, len(entities))
	for _, e := range entities {
		result = append(result, e.Descriptor())
	}
	return result
}

func paths(entities []*client.Entity) []string {
	result := make([]string, 0, len(entities))
	for _, e := range entities {
		result = append(result, e.Path())
	}
	return result
}
