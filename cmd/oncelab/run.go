// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/history"
	"code.hybscloud.com/once/internal/labmetrics"
	"code.hybscloud.com/once/internal/perfcount"
	"code.hybscloud.com/once/internal/report"
	"code.hybscloud.com/once/internal/suite"
)

var (
	runFilter    string
	runEvents    []string
	runCommit    string
	runCount     int
	runBenchTime time.Duration
	runJSON      bool
	runNoSave    bool
	runArchive   bool
	runUpload    string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark suite and archive the results",
	Long: `Runs the suite with testing.Benchmark, attributes hardware counters
per operation where the platform supports them, prints the results and
archives them as a JSON file and a history database row.`,
	RunE: runSuite,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runFilter, "filter", "", "regexp selecting benchmarks to run")
	runCmd.Flags().StringSliceVar(&runEvents, "events", nil, "hardware events to count (default: the six-counter pipeline group)")
	runCmd.Flags().StringVar(&runCommit, "commit", "", "commit label for the run (default: git rev-parse)")
	runCmd.Flags().IntVar(&runCount, "count", 1, "number of times to run the suite, each archived separately")
	runCmd.Flags().DurationVar(&runBenchTime, "benchtime", 0, "per-benchmark duration, like go test -benchtime (default 1s)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run as JSON")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "skip writing the run JSON file")
	runCmd.Flags().BoolVar(&runArchive, "archive", true, "record the run in the history database")
	runCmd.Flags().StringVar(&runUpload, "upload", "", "dashboard base URL to POST the run to")
}

func runSuite(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if runCount < 1 {
		return fmt.Errorf("count must be positive")
	}
	descs, err := suite.Filter(suite.Default(), runFilter)
	if err != nil {
		return err
	}
	if len(descs) == 0 {
		return fmt.Errorf("no benchmarks match %q", runFilter)
	}

	opts := benchlab.Options{Commit: runCommit, BenchTime: runBenchTime}
	if opts.Commit == "" {
		opts.Commit = benchlab.DetectCommit(ctx)
	}
	if runEvents != nil {
		events, err := perfcount.ParseEvents(runEvents)
		if err != nil {
			return err
		}
		opts.Events = events
	}

	var store *benchlab.Store
	if !runNoSave {
		if store, err = benchlab.NewStore(viper.GetString("data_dir")); err != nil {
			return err
		}
	}
	var archive *history.Store
	if runArchive {
		if archive, err = history.Open(viper.GetString("db")); err != nil {
			return err
		}
		defer archive.Close()
	}

	out := cmd.OutOrStdout()
	for pass := range runCount {
		if pass > 0 {
			fmt.Fprintln(out)
		}
		if err := runOnce(ctx, out, descs, opts, store, archive); err != nil {
			return err
		}
	}
	return nil
}

func runOnce(ctx context.Context, out io.Writer, descs []benchlab.Descriptor, opts benchlab.Options, store *benchlab.Store, archive *history.Store) error {
	labmetrics.SuiteRunsTotal.Inc()
	started := time.Now()
	run, err := benchlab.Execute(ctx, descs, opts)
	if err != nil {
		return err
	}
	labmetrics.SuiteDurationSeconds.Observe(time.Since(started).Seconds())

	if runJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(run); err != nil {
			return err
		}
	} else {
		report.WriteRun(out, run)
		report.WriteCounters(out, run)
	}

	if store != nil {
		path, err := store.Save(run)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nsaved %s\n", path)
	}

	if archive != nil {
		if err := archive.SaveRun(ctx, run); err != nil {
			return err
		}
	}

	if runUpload != "" {
		if err := uploadRun(ctx, runUpload, run); err != nil {
			return err
		}
		fmt.Fprintf(out, "uploaded to %s\n", runUpload)
	}
	return nil
}

// uploadRun POSTs the run to a dashboard's ingest endpoint.
func uploadRun(ctx context.Context, baseURL string, run benchlab.Run) error {
	body, err := json.Marshal(run)
	if err != nil {
		return err
	}

	url := strings.TrimRight(baseURL, "/") + "/api/runs"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload %s: %s", url, resp.Status)
	}
	return nil
}
