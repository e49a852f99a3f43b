package main

import (
	"encoding/json"
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/snap"
)

type PatchConfig struct {
	*MainConfig

	Patch *cli.Command
}

func PatchCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &PatchConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Patch, "patch").
		WithAliases("p").
		WithSynopsis("patch <snapshot> <patchfile>").
		WithDescription("apply a patch list to a snapshot file, printing the result").
		WithRun(func(cc *cli.Context, args []string) error {
			return runPatch(cfg, cc, args)
		})
}

func runPatch(cfg *PatchConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Patch.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: patch takes a snapshot file and a patch file", cli.ErrUsage)
	}
	doc, err := cfg.readSnapshot(args[0])
	if err != nil {
		return err
	}
	raw, err := cfg.readSnapshot(args[1])
	if err != nil {
		return err
	}
	patches, err := decodePatches(raw)
	if err != nil {
		return err
	}
	res, err := patch.Apply(doc, patches)
	if err != nil {
		return err
	}
	return cfg.writeValue(cc.Out, res)
}

func decodePatches(raw any) ([]patch.Patch, error) {
	d, err := snap.MarshalJSON(raw)
	if err != nil {
		return nil, err
	}
	var patches []patch.Patch
	if err := json.Unmarshal(d, &patches); err != nil {
		return nil, fmt.Errorf("patch file must hold a patch array: %w", err)
	}
	return patches, nil
}
