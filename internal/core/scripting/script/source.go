package script

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/zeusync/jo/internal/core/observability/log"
)

const extension = ".js"

// Kind tells how a Source is installed into the interpreter.
type Kind uint8

const (
	// KindModule sources assign behaviour functions to module.exports.
	KindModule Kind = iota + 1
	// KindInline sources are a single function expression bound under Name.
	KindInline
)

// Source is a behaviour script ready to be compiled.
type Source struct {
	Name     string
	Path     string
	Kind     Kind
	Code     string
	Checksum uint64
}

// NewInline wraps a function expression given directly in configuration.
func NewInline(name, code string) Source {
	return Source{
		Name:     name,
		Path:     "inline:" + name,
		Kind:     KindInline,
		Code:     code,
		Checksum: xxhash.Sum64String(code),
	}
}

// NewModule wraps module source text that was obtained elsewhere.
func NewModule(name, path, code string) Source {
	return Source{
		Name:     name,
		Path:     path,
		Kind:     KindModule,
		Code:     code,
		Checksum: xxhash.Sum64String(code),
	}
}

// Fingerprint hashes the names and checksums of sources in order. Two engines
// with the same fingerprint run the same behaviour code.
func Fingerprint(sources []Source) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, src := range sources {
		_, _ = d.WriteString(src.Name)
		for i := range buf {
			buf[i] = byte(src.Checksum >> (8 * i))
		}
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

// Loader resolves module names against a search path.
type Loader struct {
	paths       []string
	concurrency int
	logger      log.Log
}

// NewLoader returns a loader searching paths in order.
func NewLoader(paths []string, logger log.Log) *Loader {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Loader{
		paths:       paths,
		concurrency: 4,
		logger:      logger.Named("script-loader"),
	}
}

// Resolve returns the first <dir>/<name>.js found on the search path.
func (l *Loader) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	file := name
	if filepath.Ext(file) != extension {
		file += extension
	}
	for _, dir := range l.paths {
		candidate := filepath.Join(dir, file)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s: %v", ErrUnreadable, candidate, err)
		}
	}
	return "", fmt.Errorf("%w: %s (searched %v)", ErrScriptNotFound, name, l.paths)
}

// Load reads every named module. Files are read concurrently; the result keeps
// the order of names with duplicates removed. Any failure fails the whole load.
func (l *Loader) Load(ctx context.Context, names []string) ([]Source, error) {
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}

	sources := make([]Source, len(unique))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, name := range unique {
		i, name := i, name
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := l.read(name)
			if err != nil {
				return err
			}
			sources[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, src := range sources {
		l.logger.Debug("Script loaded",
			log.String("script", src.Name),
			log.String("path", src.Path),
			log.Uint64("checksum", src.Checksum))
	}
	return sources, nil
}

func (l *Loader) read(name string) (Source, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return Source{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("%w: %s: %v", ErrUnreadable, path, err)
	}
	if !utf8.Valid(data) {
		return Source{}, fmt.Errorf("%w: %s", ErrNotUTF8, path)
	}
	return NewModule(strings.TrimSuffix(name, extension), path, string(data)), nil
}
