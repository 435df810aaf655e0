package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/chazu/stackchunk/store"
)

func openStore(e *env) (*store.Store, error) {
	return store.Open(e.cfg.StorePath())
}

// runPut handles `chunk put NAME FILE`.
func runPut(e *env, args []string) error {
	fs := subFlags(e, "put", "put NAME FILE")
	if err := parseArgs(fs, args, 2); err != nil {
		return err
	}
	c, err := readChunk(e, fs.Arg(1))
	if err != nil {
		return err
	}

	s, err := openStore(e)
	if err != nil {
		return err
	}
	defer s.Close()

	h, err := s.Put(context.Background(), fs.Arg(0), c)
	if err != nil {
		return err
	}
	fmt.Fprintln(e.stdout, h)
	return nil
}

// runGet handles `chunk get NAME [-o OUT]`.
func runGet(e *env, args []string) error {
	fs := subFlags(e, "get", "get NAME [-o OUT]")
	out := fs.StringP("output", "o", "-", "Output path (- for stdout)")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	s, err := openStore(e)
	if err != nil {
		return err
	}
	defer s.Close()

	c, _, err := s.Load(context.Background(), fs.Arg(0))
	if err != nil {
		return err
	}
	return writeChunk(e, *out, c)
}

// runList handles `chunk ls`.
func runList(e *env, args []string) error {
	fs := subFlags(e, "ls", "ls")
	if err := parseArgs(fs, args, 0); err != nil {
		return err
	}

	s, err := openStore(e)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.List(context.Background())
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	for _, ent := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", ent.Name, ent.Hash.String()[:12], ent.Size)
	}
	return tw.Flush()
}

// runRemove handles `chunk rm NAME`.
func runRemove(e *env, args []string) error {
	fs := subFlags(e, "rm", "rm NAME")
	if err := parseArgs(fs, args, 1); err != nil {
		return err
	}

	s, err := openStore(e)
	if err != nil {
		return err
	}
	defer s.Close()

	return s.Delete(context.Background(), fs.Arg(0))
}
