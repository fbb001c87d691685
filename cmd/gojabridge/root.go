package main

import (
	"fmt"

	gojabridge "github.com/joeycumines/goja-bridge"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	logLevel    string
	moduleRoots []string
}

func newRootCommand() *cobra.Command {
	var opts rootOptions
	cmd := &cobra.Command{
		Use:          "gojabridge",
		Short:        "Evaluate and call JavaScript with an embedded goja engine",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", logiface.LevelInformational.String(),
		"log level: disabled, emerg, alert, crit, err, warning, notice, info, debug or trace")
	cmd.PersistentFlags().StringArrayVar(&opts.moduleRoots, "module-root", nil,
		"folder searched for bare module specifiers, after node_modules (repeatable)")
	cmd.AddCommand(
		newEvalCommand(&opts),
		newCallCommand(&opts),
		newReplCommand(&opts),
	)
	return cmd
}

func (x *rootOptions) newEngine(cmd *cobra.Command) (*gojabridge.Engine, error) {
	level, err := parseLevel(x.logLevel)
	if err != nil {
		return nil, err
	}
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(cmd.ErrOrStderr())),
		stumpy.L.WithLevel(level),
	).Logger()
	return gojabridge.New(
		gojabridge.WithLogger(logger),
		gojabridge.WithGlobalFolders(x.moduleRoots...),
	)
}

func parseLevel(s string) (logiface.Level, error) {
	for level := logiface.LevelDisabled; level <= logiface.LevelTrace; level++ {
		if level.String() == s {
			return level, nil
		}
	}
	return logiface.LevelDisabled, fmt.Errorf("invalid log level %q", s)
}
