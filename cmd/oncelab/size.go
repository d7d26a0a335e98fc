// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"code.hybscloud.com/once/internal/objdump"
	"code.hybscloud.com/once/internal/report"
)

var (
	sizeBinary string
	sizeCalls  bool
)

var sizeCmd = &cobra.Command{
	Use:   "size <symbol regexp>",
	Short: "Measure machine code size of matching symbols",
	Long: `Disassembles a binary with go tool objdump and reports bytes and
instruction counts per symbol: the number that decides whether a fast
path stays inlineable and how much icache it occupies.`,
	Args: cobra.ExactArgs(1),
	RunE: runSize,
}

func init() {
	rootCmd.AddCommand(sizeCmd)
	sizeCmd.Flags().StringVar(&sizeBinary, "binary", "", "binary to inspect (default: this executable)")
	sizeCmd.Flags().BoolVar(&sizeCalls, "calls", false, "list resolved call targets per symbol")
}

func runSize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var (
		syms []objdump.Symbol
		err  error
	)
	if sizeBinary == "" {
		syms, err = objdump.Self(ctx, args[0])
	} else {
		syms, err = objdump.Inspect(ctx, sizeBinary, args[0])
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report.WriteSymbols(out, syms)

	if sizeCalls {
		for _, s := range syms {
			if len(s.CallTargets) == 0 {
				continue
			}
			fmt.Fprintf(out, "\n%s calls:\n", s.Name)
			for _, target := range s.CallTargets {
				fmt.Fprintf(out, "  %s\n", target)
			}
		}
	}
	return nil
}
