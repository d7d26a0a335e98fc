// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/report"
)

var (
	compareThreshold float64
	compareStrict    bool
)

var compareCmd = &cobra.Command{
	Use:   "compare [old.json new.json]",
	Short: "Compare two runs and flag regressions",
	Long: `Compares two archived runs benchmark by benchmark. Without
arguments the two most recent runs in the data directory are compared.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)
	compareCmd.Flags().Float64Var(&compareThreshold, "threshold", benchlab.DefaultThreshold, "percent change treated as a real move")
	compareCmd.Flags().BoolVar(&compareStrict, "strict", false, "exit non-zero when regressions are found")
}

func runCompare(cmd *cobra.Command, args []string) error {
	if !cmd.Flags().Changed("threshold") {
		compareThreshold = viper.GetFloat64("threshold")
	}

	store, err := benchlab.NewStore(viper.GetString("data_dir"))
	if err != nil {
		return err
	}

	var prev, curr benchlab.Run
	switch len(args) {
	case 2:
		if prev, err = store.LoadFile(args[0]); err != nil {
			return err
		}
		if curr, err = store.LoadFile(args[1]); err != nil {
			return err
		}
	case 0:
		p, c, err := store.LastTwo()
		if err != nil {
			return err
		}
		prev, curr = *p, *c
	default:
		return fmt.Errorf("pass two run files or none")
	}

	report.WriteComparison(cmd.OutOrStdout(), prev, curr, compareThreshold)

	if compareStrict {
		comps := benchlab.Compare(prev, curr)
		if regressions := benchlab.Regressions(comps, compareThreshold); len(regressions) > 0 {
			return fmt.Errorf("%d benchmark(s) regressed beyond %.2f%%", len(regressions), compareThreshold)
		}
	}
	return nil
}
