// chunk assembles, inspects and stores serialized bytecode chunks.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/pflag"
	"github.com/tliron/commonlog"

	"github.com/chazu/stackchunk/config"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("stackchunk.cli")

// env is what every subcommand runs against.
type env struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

type command struct {
	usage string
	help  string
	run   func(e *env, args []string) error
}

var commands = map[string]command{
	"asm":    {"asm SRC [-o OUT]", "assemble a text listing into a chunk file", runAsm},
	"dis":    {"dis FILE", "disassemble a chunk file", runDis},
	"verify": {"verify FILE", "check a chunk file's operands and jump targets", runVerify},
	"put":    {"put NAME FILE", "store a chunk file under NAME", runPut},
	"get":    {"get NAME [-o OUT]", "write the chunk stored under NAME", runGet},
	"ls":     {"ls", "list stored chunks", runList},
	"rm":     {"rm NAME", "remove a name from the store", runRemove},
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := pflag.NewFlagSet("chunk", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	verbose := fs.CountP("verbose", "v", "Increase log verbosity (repeatable)")
	dir := fs.StringP("config", "C", ".", "Directory to search upward from for stackchunk.toml")
	fs.Usage = func() { usage(stderr, fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return pflag.ErrHelp
	}

	cfg, err := config.FindAndLoad(*dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	commonlog.Configure(cfg.Log.Verbosity+*verbose, cfg.LogFile())
	log.Debugf("config dir %s, store %s", cfg.Dir, cfg.StorePath())

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", name)
	}
	return cmd.run(&env{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}, fs.Args()[1:])
}

func usage(w io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(w, "Usage: chunk [options] <command> [args]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %s\n", commands[name].usage, commands[name].help)
	}
	fmt.Fprintf(w, "\nOptions:\n")
	fs.PrintDefaults()
}

// subFlags returns a flag set for a subcommand; use is its synopsis.
func subFlags(e *env, name, use string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.stderr)
	fs.Usage = func() {
		fmt.Fprintf(e.stderr, "Usage: chunk %s\n", use)
		fs.PrintDefaults()
	}
	return fs
}

// parseArgs parses args and requires exactly nargs positional arguments.
func parseArgs(fs *pflag.FlagSet, args []string, nargs int) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != nargs {
		fs.Usage()
		return fmt.Errorf("%s: want %d argument(s), got %d", fs.Name(), nargs, fs.NArg())
	}
	return nil
}
