package main

import (
	"github.com/spf13/cobra"
)

func newEvalCommand(root *rootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "eval [source]",
		Short: "Evaluate a script, printing the value of its last expression",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, src, err := readSource(cmd, file, args)
			if err != nil {
				return err
			}
			engine, err := root.newEngine(cmd)
			if err != nil {
				return err
			}
			defer engine.Close()
			v, err := engine.EvalNamed(name, src)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), v)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the script from a file, - for stdin")
	return cmd
}
