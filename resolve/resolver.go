package resolve

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/dop251/goja_nodejs/require"
	"github.com/spf13/afero"
)

var (
	// ErrNotFound is matched by every [NotFoundError].
	ErrNotFound = errors.New("resolve: module not found")

	// extensions tried, in order, for specifiers without a matching file
	extensions = [...]string{".js", ".mjs", ".json"}
	// index files tried, in order, for directories
	indexFiles = [...]string{"index.js", "index.mjs", "index.json"}
)

type (
	// Resolver locates module sources on a filesystem, following the
	// node_modules convention, with package entry points chosen by the
	// "module" field, then the "main" field, then index.js.
	//
	// A Resolver is safe for concurrent use.
	Resolver struct {
		fs            afero.Fs
		globalFolders []string
		rewrite       bool
	}

	// Module is a resolved module source.
	Module struct {
		// Path is the absolute, slash separated path of the file.
		Path   string
		Source []byte
	}

	// NotFoundError is returned when a specifier cannot be resolved.
	NotFoundError struct {
		Specifier string
		Referrer  string
	}

	packageManifest struct {
		Module string `json:"module"`
		Main   string `json:"main"`
	}
)

// New returns a new [Resolver]. By default it reads the OS filesystem, and
// rewrites ES module syntax in JavaScript sources.
func New(opts ...Option) (*Resolver, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	return &Resolver{
		fs:            cfg.fs,
		globalFolders: cfg.globalFolders,
		rewrite:       cfg.rewrite,
	}, nil
}

// GlobalFolders returns the folders searched after node_modules lookup fails.
func (x *Resolver) GlobalFolders() []string {
	return append([]string(nil), x.globalFolders...)
}

// Resolve locates the module identified by specifier, as imported by the
// module at referrer (a file path, or empty for the working directory).
//
// Relative and absolute specifiers are resolved against the directory of the
// referrer. Package specifiers, including scoped ones like "@scope/name",
// are looked up in node_modules directories, from the referrer's directory
// upwards, then in the global folders.
func (x *Resolver) Resolve(specifier, referrer string) (*Module, error) {
	dir := "."
	if referrer != "" {
		dir = path.Dir(filepath.ToSlash(referrer))
	}
	dir = absolute(dir)

	if isPathSpecifier(specifier) {
		target := filepath.ToSlash(specifier)
		if !path.IsAbs(target) {
			target = path.Join(dir, target)
		}
		if m := x.loadFileOrDirectory(target); m != nil {
			return m, nil
		}
		return nil, &NotFoundError{Specifier: specifier, Referrer: referrer}
	}

	for d := dir; ; d = path.Dir(d) {
		if path.Base(d) != "node_modules" {
			if m := x.loadFileOrDirectory(path.Join(d, "node_modules", specifier)); m != nil {
				return m, nil
			}
		}
		if parent := path.Dir(d); parent == d {
			break
		}
	}

	for _, folder := range x.globalFolders {
		if m := x.loadFileOrDirectory(path.Join(absolute(filepath.ToSlash(folder)), specifier)); m != nil {
			return m, nil
		}
	}

	return nil, &NotFoundError{Specifier: specifier, Referrer: referrer}
}

// Load reads the file at p, for use as a goja_nodejs [require.SourceLoader].
//
// Missing files and directories report [require.ModuleFileDoesNotExistError].
// A package.json has its "main" field replaced by the preferred entry point,
// and JavaScript sources are rewritten by [RewriteESM] (unless disabled).
func (x *Resolver) Load(p string) ([]byte, error) {
	data, err := x.readFile(p)
	if err != nil {
		return nil, err
	}

	switch {
	case path.Base(filepath.ToSlash(p)) == "package.json":
		var manifest map[string]any
		if json.Unmarshal(data, &manifest) != nil || manifest == nil {
			return data, nil
		}
		entry := x.entryPoint(data)
		manifest["main"] = entry
		return json.Marshal(manifest)

	case x.rewrite && isScript(p):
		return []byte(RewriteESM(string(data))), nil
	}

	return data, nil
}

// SourceLoader returns [Resolver.Load] as a [require.SourceLoader].
func (x *Resolver) SourceLoader() require.SourceLoader {
	return x.Load
}

// Exists reports whether p is an existing regular file.
func (x *Resolver) Exists(p string) bool {
	info, err := x.fs.Stat(filepath.FromSlash(p))
	return err == nil && !info.IsDir()
}

func (x *Resolver) readFile(p string) ([]byte, error) {
	name := filepath.FromSlash(p)
	info, err := x.fs.Stat(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, require.ModuleFileDoesNotExistError
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, require.ModuleFileDoesNotExistError
	}
	return afero.ReadFile(x.fs, name)
}

func (x *Resolver) loadFileOrDirectory(p string) *Module {
	if m := x.loadFile(p); m != nil {
		return m
	}
	for _, ext := range extensions {
		if m := x.loadFile(p + ext); m != nil {
			return m
		}
	}
	return x.loadDirectory(p)
}

func (x *Resolver) loadDirectory(dir string) *Module {
	if data, err := x.readFile(path.Join(dir, "package.json")); err == nil {
		entry := path.Join(dir, x.entryPoint(data))
		if m := x.loadFile(entry); m != nil {
			return m
		}
		for _, ext := range extensions {
			if m := x.loadFile(entry + ext); m != nil {
				return m
			}
		}
		for _, index := range indexFiles {
			if m := x.loadFile(path.Join(entry, index)); m != nil {
				return m
			}
		}
	}
	for _, index := range indexFiles {
		if m := x.loadFile(path.Join(dir, index)); m != nil {
			return m
		}
	}
	return nil
}

func (x *Resolver) loadFile(p string) *Module {
	source, err := x.Load(p)
	if err != nil {
		return nil
	}
	return &Module{Path: p, Source: source}
}

func (x *Resolver) entryPoint(manifest []byte) string {
	var pkg packageManifest
	if err := json.Unmarshal(manifest, &pkg); err == nil {
		if pkg.Module != "" {
			return pkg.Module
		}
		if pkg.Main != "" {
			return pkg.Main
		}
	}
	return "index.js"
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("resolve: cannot find module %q", e.Specifier)
	}
	return fmt.Sprintf("resolve: cannot find module %q from %q", e.Specifier, e.Referrer)
}

// Unwrap returns [ErrNotFound].
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func isPathSpecifier(s string) bool {
	s = filepath.ToSlash(s)
	return s == "." || s == ".." ||
		strings.HasPrefix(s, "/") ||
		strings.HasPrefix(s, "./") ||
		strings.HasPrefix(s, "../") ||
		filepath.IsAbs(s)
}

func isScript(p string) bool {
	switch strings.ToLower(path.Ext(filepath.ToSlash(p))) {
	case ".js", ".mjs", ".cjs":
		return true
	}
	return false
}

func absolute(p string) string {
	if path.IsAbs(p) {
		return path.Clean(p)
	}
	if abs, err := filepath.Abs(filepath.FromSlash(p)); err == nil {
		return filepath.ToSlash(abs)
	}
	return path.Clean(p)
}
