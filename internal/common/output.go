package common

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// NewLogger builds the JSON stderr logger every command uses.
// --quiet keeps errors only and --verbose adds debug lines.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	if c.Bool("quiet") {
		logLevel = slog.LevelError
	} else if c.Bool("verbose") {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

// WriteOutput encodes v to w as yaml (the default) or json.
func WriteOutput(w io.Writer, format string, v interface{}) error {
	var outputData []byte
	var err error
	switch format {
	case "json":
		outputData, err = json.MarshalIndent(v, "", "  ")
	case "yaml", "":
		outputData, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unknown output format %q (want yaml or json)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	if _, err := w.Write(outputData); err != nil {
		return err
	}
	if format == "json" {
		_, err = fmt.Fprintln(w)
	}
	return err
}
