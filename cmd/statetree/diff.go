package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"

	"github.com/statetree/go-statetree/patch"
	"github.com/statetree/go-statetree/snapdiff"
)

type DiffConfig struct {
	*MainConfig

	Diff *cli.Command
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Diff, "diff").
		WithAliases("d").
		WithSynopsis("diff <from> <to>").
		WithDescription("diff two snapshot files, printing the patches separating them").
		WithRun(func(cc *cli.Context, args []string) error {
			return runDiff(cfg, cc, args)
		})
}

func runDiff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff takes exactly two files", cli.ErrUsage)
	}
	from, err := cfg.readSnapshot(args[0])
	if err != nil {
		return err
	}
	to, err := cfg.readSnapshot(args[1])
	if err != nil {
		return err
	}
	patches := snapdiff.Diff(from, to)
	if cfg.useColor(cc.Out) {
		renderPatches(cc.Out, patches)
		return nil
	}
	return cfg.writeValue(cc.Out, patches)
}

var opColors = map[patch.Op]func(string, ...any) string{
	patch.OpAdd:     color.GreenString,
	patch.OpRemove:  color.RedString,
	patch.OpReplace: color.YellowString,
}

func renderPatches(w io.Writer, patches []patch.Patch) {
	for _, p := range patches {
		paint := opColors[p.Op]
		switch p.Op {
		case patch.OpAdd:
			fmt.Fprintf(w, "%s /%s %s\n", paint("+"), p.Path, paint(compact(p.Value)))
		case patch.OpRemove:
			fmt.Fprintf(w, "%s /%s %s\n", paint("-"), p.Path, paint(compact(p.OldValue)))
		case patch.OpReplace:
			fmt.Fprintf(w, "%s /%s %s %s\n", paint("~"), p.Path,
				color.RedString(compact(p.OldValue)), color.GreenString(compact(p.Value)))
		}
	}
}

func compact(v any) string {
	d, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(d)
}
