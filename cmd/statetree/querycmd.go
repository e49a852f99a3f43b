package main

import (
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/statetree/go-statetree/query"
)

type QueryConfig struct {
	*MainConfig

	Query *cli.Command
}

func QueryCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &QueryConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Query, "query").
		WithAliases("q").
		WithSynopsis("query <expr> <snapshot>").
		WithDescription("evaluate an expression against a snapshot file").
		WithRun(func(cc *cli.Context, args []string) error {
			return runQuery(cfg, cc, args)
		})
}

func runQuery(cfg *QueryConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Query.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: query takes an expression and a snapshot file", cli.ErrUsage)
	}
	snapshot, err := cfg.readSnapshot(args[1])
	if err != nil {
		return err
	}
	res, err := query.Run(args[0], snapshot)
	if err != nil {
		return err
	}
	return cfg.writeValue(cc.Out, res)
}
