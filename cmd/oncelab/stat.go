// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"code.hybscloud.com/once/internal/perfcount"
	"code.hybscloud.com/once/internal/report"
)

var statEvents []string

var statCmd = &cobra.Command{
	Use:   "stat [flags] -- <command> [args...]",
	Short: "Run a command under hardware performance counters",
	Long: `Counts hardware and software events over a child process and prints
a perf-stat style summary. Requires perf_event_open, so Linux only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStat,
}

func init() {
	rootCmd.AddCommand(statCmd)
	statCmd.Flags().StringSliceVar(&statEvents, "events", nil, "events to count (default: the perf stat columns)")
}

func runStat(cmd *cobra.Command, args []string) error {
	if !perfcount.Supported() {
		return perfcount.ErrNotSupported
	}

	events := perfcount.StatEvents()
	if len(statEvents) > 0 {
		parsed, err := perfcount.ParseEvents(statEvents)
		if err != nil {
			return err
		}
		events = parsed
	}

	sample, err := perfcount.Command(cmd.Context(), events, args[0], args[1:]...)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// The counts are still valid when the child fails; print them
		// and carry the child's exit code.
		report.WriteSample(cmd.OutOrStdout(), sample)
		os.Exit(exitErr.ExitCode())
	}
	if err != nil {
		return err
	}
	report.WriteSample(cmd.OutOrStdout(), sample)
	return nil
}
