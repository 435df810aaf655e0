package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chazu/stackchunk/pkg/asm"
	"github.com/chazu/stackchunk/pkg/bytecode"
)

// runAsm handles `chunk asm SRC [-o OUT]`. SRC "-" reads stdin; the default
// output is SRC with its extension replaced by .chunk.
func runAsm(e *env, args []string) error {
	fs := subFlags(e, "asm", "asm SRC [-o OUT]")
	out := fs.StringP("output", "o", "", "Output path (- for stdout)")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	src := fs.Arg(0)

	data, err := readInput(e, src)
	if err != nil {
		return err
	}
	c, err := asm.AssembleReader(bytes.NewReader(data))
	if err != nil {
		return err
	}

	dst := *out
	if dst == "" {
		if src == "-" {
			dst = "-"
		} else {
			dst = strings.TrimSuffix(src, filepath.Ext(src)) + ".chunk"
		}
	}
	if err := writeChunk(e, dst, c); err != nil {
		return err
	}
	log.Infof("assembled %s: %d bytes of code, %d constants, %d globals",
		src, c.Len(), c.NumConstants(), c.NumGlobals())
	return nil
}

// runDis handles `chunk dis FILE`.
func runDis(e *env, args []string) error {
	fs := subFlags(e, "dis", "dis FILE")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	c, err := readChunk(e, fs.Arg(0))
	if err != nil {
		return err
	}
	if e.cfg.Disasm.ShowPool {
		_, err = io.WriteString(e.stdout, c.DisassembleWithName(fs.Arg(0)))
	} else {
		_, err = io.WriteString(e.stdout, c.DisassembleCode())
	}
	return err
}

// runVerify handles `chunk verify FILE`.
func runVerify(e *env, args []string) error {
	fs := subFlags(e, "verify", "verify FILE")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}
	c, err := readChunk(e, fs.Arg(0))
	if err != nil {
		return err
	}
	if err := c.Verify(); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "%s: ok\n", fs.Arg(0))
	return nil
}

func readInput(e *env, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(e.stdin)
	}
	return os.ReadFile(path)
}

func readChunk(e *env, path string) (*bytecode.Chunk, error) {
	data, err := readInput(e, path)
	if err != nil {
		return nil, err
	}
	c, err := bytecode.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func writeChunk(e *env, path string, c *bytecode.Chunk) error {
	if path == "-" {
		return c.Write(e.stdout)
	}
	data, err := c.MarshalBinary()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
