package main

import (
	"fmt"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"

	"github.com/statetree/go-statetree/store"
	"github.com/statetree/go-statetree/system/syncd"
	"github.com/statetree/go-statetree/types"
)

type ServeConfig struct {
	*MainConfig
	Serve *cli.Command

	Addr string `cli:"name=addr desc='TCP listen address' default=localhost:9197"`
	Init string `cli:"name=init desc='initial snapshot file'"`
}

func ServeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ServeConfig{MainConfig: mainCfg, Addr: "localhost:9197"}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Serve, "serve").
		WithSynopsis("serve [-addr <addr>] [-init <file>]").
		WithDescription("serve a state tree to replicas over TCP").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return runServe(cfg, cc, args)
		})
}

func runServe(cfg *ServeConfig, cc *cli.Context, args []string) error {
	if _, err := cfg.Serve.Parse(cc, args); err != nil {
		return err
	}

	// Start gops agent for debugging
	if err := agent.Listen(agent.Options{}); err != nil {
		fmt.Fprintf(cc.Out, "gops agent failed: %v\n", err)
	}

	var initial any
	if cfg.Init != "" {
		var err error
		initial, err = cfg.readSnapshot(cfg.Init)
		if err != nil {
			return fmt.Errorf("failed to load initial snapshot: %w", err)
		}
	}

	st, err := store.New(&store.Spec{
		Type:    types.MapOf(types.Frozen),
		Initial: initial,
	})
	if err != nil {
		return err
	}
	srv, err := syncd.New(&syncd.Spec{Store: st})
	if err != nil {
		return err
	}
	if err := srv.Listen(cfg.Addr); err != nil {
		return err
	}
	defer srv.Close()
	fmt.Fprintf(cc.Out, "syncd listening on %s\n", srv.Addr())
	return srv.Serve()
}
