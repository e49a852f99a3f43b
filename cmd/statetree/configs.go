package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"

	"github.com/statetree/go-statetree/snap"
)

type MainConfig struct {
	J     bool `cli:"name=j aliases=json desc='do i/o in json'"`
	Y     bool `cli:"name=y aliases=yaml desc='do i/o in yaml'"`
	Color bool `cli:"name=color desc='render diffs with color'"`

	Main *cli.Command
}

// readSnapshot loads a plain snapshot from a file, "-" meaning stdin. The
// format follows the -j/-y flags, falling back to the file extension.
func (cfg *MainConfig) readSnapshot(path string) (any, error) {
	var d []byte
	var err error
	if path == "-" {
		d, err = io.ReadAll(os.Stdin)
	} else {
		d, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if cfg.yamlIn(path) {
		return snap.UnmarshalYAML(d)
	}
	return snap.UnmarshalJSON(d)
}

func (cfg *MainConfig) yamlIn(path string) bool {
	if cfg.Y {
		return true
	}
	if cfg.J {
		return false
	}
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}

// writeValue renders a value on w in the configured output format.
func (cfg *MainConfig) writeValue(w io.Writer, v any) error {
	if cfg.Y {
		d, err := snap.MarshalYAML(v)
		if err != nil {
			return err
		}
		_, err = w.Write(d)
		return err
	}
	d, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s\n", d)
	return err
}

// useColor reports whether diff output should be colored: forced by -color,
// otherwise on when writing to a terminal.
func (cfg *MainConfig) useColor(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}
