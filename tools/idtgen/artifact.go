package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopheros/kernel/errors"
	"gopheros/kernel/gate"
	"gopheros/kernel/kfmt"

	"github.com/google/renameio/v2"
	"golang.org/x/sync/errgroup"
)

// artifact is a generated source file together with the emitter that
// produces its contents.
type artifact struct {
	name string
	path string
	emit func(io.Writer) error
}

func (a *artifact) render() ([]byte, error) {
	var buf bytes.Buffer
	if err := a.emit(&buf); err != nil {
		return nil, &errors.Error{Module: a.name, Message: "generation failed", Err: err}
	}
	return buf.Bytes(), nil
}

// artifacts returns the generated files in a fixed order using the output
// paths from cfg.
func artifacts(cfg *config) []*artifact {
	return []*artifact{
		{name: "asm", path: cfg.asmPath, emit: gate.WriteTrampolines},
		{name: "init", path: cfg.initPath, emit: gate.WriteDescriptorTable},
		{name: "externs", path: cfg.externsPath, emit: gate.WriteExterns},
	}
}

// checkDistinctPaths ensures that no two artifacts share a destination.
func checkDistinctPaths(arts []*artifact) error {
	owners := make(map[string]string, len(arts))
	for _, a := range arts {
		abs, err := filepath.Abs(a.path)
		if err != nil {
			return &errors.Error{Module: a.name, Message: "invalid output path", Err: err}
		}

		if owner, taken := owners[abs]; taken {
			return &errors.Error{
				Module:  a.name,
				Message: "duplicate output path " + a.path + " (also used by " + owner + ")",
				Err:     errors.ErrInvalidParamValue,
			}
		}
		owners[abs] = a.name
	}

	return nil
}

// selectArtifacts filters all by the comma-separated list of names in only.
// An empty list selects everything.
func selectArtifacts(all []*artifact, only string) ([]*artifact, error) {
	if strings.TrimSpace(only) == "" {
		if err := checkDistinctPaths(all); err != nil {
			return nil, err
		}
		return all, nil
	}

	wanted := make(map[string]bool)
	for _, name := range strings.Split(only, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		var found bool
		for _, a := range all {
			if a.name == name {
				found = true
				break
			}
		}
		if !found {
			return nil, &errors.Error{Module: name, Err: errors.ErrUnknownArtifact}
		}
		wanted[name] = true
	}

	var selected []*artifact
	for _, a := range all {
		if wanted[a.name] {
			selected = append(selected, a)
		}
	}
	if err := checkDistinctPaths(selected); err != nil {
		return nil, err
	}
	return selected, nil
}

// writeFileAtomic writes data to a temporary file in the destination folder
// and renames it over path once the contents have been flushed.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return renameio.WriteFile(path, data, 0644)
}

// generate renders and writes each artifact. Every artifact is handled by
// its own goroutine which exclusively owns the destination file.
func generate(arts []*artifact, log *kfmt.PrefixWriter, verbose bool) error {
	var g errgroup.Group
	for _, a := range arts {
		g.Go(func() error {
			data, err := a.render()
			if err != nil {
				return err
			}

			if err = writeFileAtomic(a.path, data); err != nil {
				return &errors.Error{Module: a.name, Message: "write failed", Err: err}
			}

			if verbose {
				log.Printf("wrote %s (%d bytes)", a.path, len(data))
			}
			return nil
		})
	}

	return g.Wait()
}

// check compares the on-disk contents of each artifact with a freshly
// rendered copy and reports every file that is missing or out of date.
func check(arts []*artifact, log *kfmt.PrefixWriter, verbose bool) error {
	var (
		g     errgroup.Group
		mu    sync.Mutex
		stale []string
	)

	for _, a := range arts {
		g.Go(func() error {
			exp, err := a.render()
			if err != nil {
				return err
			}

			got, err := os.ReadFile(a.path)
			switch {
			case os.IsNotExist(err):
				got = nil
			case err != nil:
				return &errors.Error{Module: a.name, Message: "read failed", Err: err}
			}

			if got != nil && bytes.Equal(got, exp) {
				if verbose {
					log.Printf("%s is up to date", a.path)
				}
				return nil
			}

			mu.Lock()
			stale = append(stale, a.path)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if len(stale) == 0 {
		return nil
	}

	sort.Strings(stale)
	log.Printf("stale artifacts:\n  %s", strings.Join(stale, "\n  "))
	return &errors.Error{Module: "check", Message: strings.Join(stale, ", "), Err: errors.ErrStaleArtifact}
}
