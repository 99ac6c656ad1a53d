// nvtool inspects and produces nv list dumps.
//
// Usage:
//
//	nvtool show [--format json|yaml] [--compressed] <dump|->
//	nvtool pack [--format json|yaml] [--compression none|lz4|zstd] <document|-> <dump>
//	nvtool digest <dump|->
//
// Set NVTOOL_DEBUG to any value for debug logging on stderr.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/map-protocol/nv"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if os.Getenv("NVTOOL_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "show":
		err = showCmd(args, os.Stdin, os.Stdout, logger)
	case "pack":
		err = packCmd(args, os.Stdin, logger)
	case "digest":
		err = digestCmd(args, os.Stdin, os.Stdout, logger)
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `nvtool inspects and produces nv list dumps.

Usage:
  nvtool show [--format json|yaml] [--compressed] <dump|->
  nvtool pack [--format json|yaml] [--compression none|lz4|zstd] <document|-> <dump>
  nvtool digest <dump|->

A document is the typed JSON or YAML form of a list:

  {"flags": ["allow_duplicates"],
   "entries": [{"name": "answer", "type": "number", "value": 42}]}
`)
}

func showCmd(args []string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	var format string
	var compressed bool
	flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
	flagSet.StringVar(&format, "format", "json", "output format: json or yaml")
	flagSet.BoolVar(&compressed, "compressed", false, "input is a compressed frame")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("show: expected exactly one input")
	}

	raw, err := readInput(flagSet.Arg(0), stdin)
	if err != nil {
		return err
	}
	var list *nv.NvList
	if compressed {
		list, err = nv.UnmarshalCompressed(raw)
	} else {
		list, err = nv.Unmarshal(raw)
	}
	if err != nil {
		return errors.Wrapf(err, "decoding %s", flagSet.Arg(0))
	}
	logger.Debug("decoded list", "input", flagSet.Arg(0), "bytes", len(raw), "entries", list.Len())

	switch format {
	case "json":
		out, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return errors.Wrap(err, "rendering JSON")
		}
		_, err = fmt.Fprintf(stdout, "%s\n", out)
		return err
	case "yaml":
		encoder := yaml.NewEncoder(stdout)
		encoder.SetIndent(2)
		if err := encoder.Encode(list); err != nil {
			return errors.Wrap(err, "rendering YAML")
		}
		return encoder.Close()
	default:
		return errors.Errorf("show: unknown format %q", format)
	}
}

func packCmd(args []string, stdin io.Reader, logger *slog.Logger) error {
	var format, compression string
	flagSet := pflag.NewFlagSet("pack", pflag.ContinueOnError)
	flagSet.StringVar(&format, "format", "", "input format: json or yaml (default: from file extension, else json)")
	flagSet.StringVar(&compression, "compression", "", "write a compressed frame: none, lz4 or zstd")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 2 {
		return errors.New("pack: expected an input document and an output path")
	}
	input, output := flagSet.Arg(0), flagSet.Arg(1)

	raw, err := readInput(input, stdin)
	if err != nil {
		return err
	}
	if format == "" {
		format = formatFromPath(input)
	}

	list := new(nv.NvList)
	switch format {
	case "json":
		err = json.Unmarshal(raw, list)
	case "yaml":
		err = yaml.Unmarshal(raw, list)
	default:
		return errors.Errorf("pack: unknown format %q", format)
	}
	if err != nil {
		return errors.Wrapf(err, "reading document %s", input)
	}

	var out []byte
	if compression == "" {
		out, err = nv.Marshal(list)
	} else {
		var c nv.Compression
		if c, err = nv.ParseCompression(compression); err != nil {
			return err
		}
		out, err = nv.MarshalCompressed(list, c)
	}
	if err != nil {
		return errors.Wrap(err, "encoding list")
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", output)
	}
	logger.Info("packed list", "input", input, "output", output, "entries", list.Len(), "bytes", len(out))
	return nil
}

func digestCmd(args []string, stdin io.Reader, stdout io.Writer, logger *slog.Logger) error {
	flagSet := pflag.NewFlagSet("digest", pflag.ContinueOnError)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return errors.New("digest: expected exactly one input")
	}
	raw, err := readInput(flagSet.Arg(0), stdin)
	if err != nil {
		return err
	}
	digest, err := nv.DigestDump(raw)
	if err != nil {
		return errors.Wrapf(err, "digesting %s", flagSet.Arg(0))
	}
	logger.Debug("digested dump", "input", flagSet.Arg(0), "bytes", len(raw))
	_, err = fmt.Fprintln(stdout, digest)
	return err
}

// readInput reads a whole file, or stdin for "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading %s", path)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(io.LimitReader(r, nv.MaxDumpBytes+1))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	if len(data) > nv.MaxDumpBytes {
		return nil, errors.Errorf("%s: input larger than %d bytes", path, nv.MaxDumpBytes)
	}
	return data, nil
}

func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}
