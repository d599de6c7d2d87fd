package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kube-rca/jvm-analyzer/internal/flamegraph"
	"github.com/kube-rca/jvm-analyzer/internal/jfr"
)

// summarize - 로컬 JFR 파일을 모델 입력과 같은 형식으로 출력
func newSummarizeCmd() *cobra.Command {
	var withCollapsed bool

	cmd := &cobra.Command{
		Use:   "summarize <file.jfr>",
		Short: "Print the model-facing summary of a local JFR file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprint(out, jfr.FormatForModel(jfr.Parse(raw)))

			if withCollapsed {
				collapsed, err := flamegraph.NewCollapser().ToCollapsed(cmd.Context(), raw)
				if err != nil {
					return fmt.Errorf("failed to build collapsed stacks: %w", err)
				}
				fmt.Fprint(out, collapsed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withCollapsed, "collapsed", false, "also print collapsed stacks")
	return cmd
}
