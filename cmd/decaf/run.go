package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/chazu/decaf/classfile"
	"github.com/chazu/decaf/config"
	"github.com/chazu/decaf/decompile"
	"github.com/chazu/decaf/store"
)

// runner decompiles class files one after another and writes their
// results.
type runner struct {
	opts   decompile.Options
	emit   string
	dotDir string
	out    io.Writer
	cache  store.Store
	run    uuid.UUID

	classes  int
	cached   int
	outcomes map[decompile.Outcome]int
}

func newRunner(c *config.Config, emit, dotDir string, out io.Writer) (*runner, error) {
	cache, err := store.Open(c.Cache.Backend, c.Cache.Path)
	if err != nil {
		return nil, err
	}
	if dotDir != "" {
		if err := os.MkdirAll(dotDir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create %s: %w", dotDir, err)
		}
	}
	r := &runner{
		opts:     c.Options(),
		emit:     emit,
		dotDir:   dotDir,
		out:      out,
		cache:    cache,
		run:      uuid.New(),
		outcomes: map[decompile.Outcome]int{},
	}
	log.Infof("run %s", r.run)
	return r, nil
}

func (r *runner) close() {
	if r.cache != nil {
		if err := r.cache.Close(); err != nil {
			log.Warningf("closing cache: %v", err)
		}
		r.cache = nil
	}
}

// collectClassFiles returns path itself for a file, or every .class file
// under a directory in lexical order.
func collectClassFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".class") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", path, err)
	}
	sort.Strings(files)
	return files, nil
}

func (r *runner) file(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	r.classes++

	var key store.Key
	if r.cache != nil && r.dotDir == "" {
		key, err = store.KeyFor(data, r.opts)
		if err != nil {
			return err
		}
		e, ok, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Warningf("%s: cache: %v", path, err)
		} else if ok {
			r.cached++
			log.Debugf("%s: cached by run %s", path, e.RunID)
			return r.writeEntry(e)
		}
	}

	cf, err := classfile.Parse(data)
	if err != nil {
		return err
	}
	res, err := decompile.Class(ctx, cf, r.opts)
	if err != nil {
		return err
	}
	for _, m := range res.Methods {
		r.outcomes[m.Outcome]++
	}
	if r.dotDir != "" {
		if err := r.writeGraphs(res); err != nil {
			return err
		}
	}

	e := store.NewEntry(r.run, res)
	if r.cache != nil && r.dotDir == "" {
		if err := r.cache.Put(ctx, key, e); err != nil {
			log.Warningf("%s: cache: %v", path, err)
		}
	}
	if r.emit == "cbor" {
		return r.writeEntry(e)
	}
	return decompile.Fprint(r.out, res)
}

// writeEntry prints a stored summary in the selected format.
func (r *runner) writeEntry(e *store.Entry) error {
	if r.emit == "cbor" {
		data, err := store.Marshal(e)
		if err != nil {
			return err
		}
		_, err = r.out.Write(data)
		return err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "class %s\n", e.Class)
	for _, f := range e.Fields {
		line := "  field " + f.Name
		if f.Initializer != "" {
			line += " = " + f.Initializer
		}
		if f.Synthetic {
			line += " [synthetic]"
		}
		sb.WriteString(line + "\n")
	}
	for _, m := range e.Methods {
		tags := m.Outcome
		if m.Synthetic {
			tags += " synthetic"
		}
		fmt.Fprintf(&sb, "method %s%s [%s]\n", m.Name, m.Desc, tags)
		if m.Error != "" {
			fmt.Fprintf(&sb, "  // %s\n", m.Error)
		}
		for _, l := range strings.SplitAfter(m.Body, "\n") {
			if l != "" {
				sb.WriteString("  " + l)
			}
		}
	}
	_, err := io.WriteString(r.out, sb.String())
	return err
}

func (r *runner) writeGraphs(res *decompile.ClassResult) error {
	for _, m := range res.Methods {
		if m.Graph == nil {
			continue
		}
		name := dotName(res.Name, m.Name, m.Desc)
		data, err := m.Graph.DOT(name)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(r.dotDir, name+".dot"), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// dotName turns a class and method into a file-name-safe identifier.
func dotName(class, method, desc string) string {
	repl := strings.NewReplacer("/", ".", "<", "_", ">", "_", "(", "_", ")", "_", ";", "", "[", "A", "$", "_")
	return repl.Replace(class + "." + method + desc)
}

func (r *runner) summary(w io.Writer) {
	fmt.Fprintf(w, "%d classes (%d cached), %d ok, %d partial, %d failed\n",
		r.classes, r.cached,
		r.outcomes[decompile.OutcomeOK], r.outcomes[decompile.OutcomePartial], r.outcomes[decompile.OutcomeFailed])
}
