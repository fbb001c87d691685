package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/joeycumines/go-prompt"
	"github.com/joeycumines/go-utilpkg/jsonenc"
	gojabridge "github.com/joeycumines/goja-bridge"
	"github.com/spf13/cobra"
)

func newReplCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session, exit with .exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := root.newEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()

			r := &repl{engine: engine, out: cmd.OutOrStdout()}
			p := prompt.New(
				r.execute,
				prompt.WithPrefix(">>> "),
				prompt.WithTitle("gojabridge"),
				prompt.WithExitChecker(r.exit),
			)
			if code := p.RunNoExit(); code > 0 {
				return fmt.Errorf("prompt exited with code %d", code)
			}
			return nil
		},
	}
}

type repl struct {
	engine *gojabridge.Engine
	out    io.Writer
	line   int
}

func (x *repl) execute(in string) {
	in = strings.TrimSpace(in)
	if in == "" || in == ".exit" {
		return
	}
	x.line++
	v, err := x.engine.EvalNamed(fmt.Sprintf("<repl:%d>", x.line), in)
	if err != nil {
		_, _ = x.out.Write(appendError(nil, err))
		return
	}
	if err := writeJSON(x.out, v); err != nil {
		fmt.Fprintln(x.out, err)
	}
}

func (x *repl) exit(in string, breakline bool) bool {
	return breakline && strings.TrimSpace(in) == ".exit"
}

// appendError encodes err as a single line JSON object, with its kind.
func appendError(dst []byte, err error) []byte {
	dst = append(dst, `{"kind":`...)
	dst = jsonenc.AppendString(dst, gojabridge.KindOf(err).String())
	dst = append(dst, `,"error":`...)
	dst = jsonenc.AppendString(dst, err.Error())
	return append(dst, "}\n"...)
}
