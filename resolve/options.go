package resolve

import (
	"errors"

	"github.com/spf13/afero"
)

// Option configures a [Resolver].
type Option interface {
	apply(*config) error
}

type config struct {
	fs            afero.Fs
	globalFolders []string
	rewrite       bool
}

func resolveOptions(opts []Option) (*config, error) {
	cfg := &config{rewrite: true}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.fs == nil {
		cfg.fs = afero.NewOsFs()
	}
	return cfg, nil
}

// WithFS sets the filesystem modules are read from. Defaults to the OS
// filesystem.
func WithFS(fs afero.Fs) Option {
	return withFS{fs: fs}
}

type withFS struct {
	fs afero.Fs
}

func (o withFS) apply(cfg *config) error {
	if o.fs == nil {
		return errors.New("filesystem must not be nil")
	}
	cfg.fs = o.fs
	return nil
}

// WithGlobalFolders appends folders searched for package specifiers, after
// every node_modules directory.
func WithGlobalFolders(folders ...string) Option {
	return withGlobalFolders(folders)
}

type withGlobalFolders []string

func (o withGlobalFolders) apply(cfg *config) error {
	for _, folder := range o {
		if folder == "" {
			return errors.New("global folder must not be empty")
		}
	}
	cfg.globalFolders = append(cfg.globalFolders, o...)
	return nil
}

// WithoutESMRewrite disables [RewriteESM] for loaded sources.
func WithoutESMRewrite() Option {
	return withoutESMRewrite{}
}

type withoutESMRewrite struct{}

func (withoutESMRewrite) apply(cfg *config) error {
	cfg.rewrite = false
	return nil
}
