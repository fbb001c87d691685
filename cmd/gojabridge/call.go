package main

import (
	"context"
	"os"
	"time"

	gojabridge "github.com/joeycumines/goja-bridge"
	"github.com/spf13/cobra"
)

func newCallCommand(root *rootOptions) *cobra.Command {
	var (
		script  bool
		async   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "call <file> <function> [json-arg...]",
		Short: "Call a function exported by a module, or defined by a script",
		Long: `Call a function exported by a module, or defined by a script.

Each argument is decoded as JSON. With --async, a returned promise is awaited,
for at most --timeout.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, name := args[0], args[1]
			values, err := parseArgs(args[2:])
			if err != nil {
				return err
			}

			engine, err := root.newEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			var c *gojabridge.Context
			if script {
				src, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				c, err = engine.CompileScriptNamed(file, string(src))
				if err != nil {
					return err
				}
			} else if c, err = engine.CompileModuleFile(file); err != nil {
				return err
			}
			defer c.Close()

			var result any
			if async {
				ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
				defer cancel()
				result, err = c.CallAsync(name, values...).Wait(ctx)
			} else {
				result, err = c.Call(name, values...)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().BoolVar(&script, "script", false, "run the file as a script, rather than loading it as a module")
	cmd.Flags().BoolVar(&async, "async", false, "await a returned promise")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to await a returned promise")
	return cmd
}
