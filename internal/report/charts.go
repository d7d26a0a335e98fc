// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package report

import (
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/perfcount"
)

// benchSeries is one benchmark's column across a sequence of runs.
type benchSeries struct {
	name    string
	labels  []string
	results []benchlab.Result
}

// groupResults pivots runs into per-benchmark series. Benchmarks keep
// the order of their first appearance; the caller passes runs oldest
// first so each series reads left to right in time.
func groupResults(runs []benchlab.Run) []benchSeries {
	byName := make(map[string]*benchSeries, 32)
	var order []string
	for _, run := range runs {
		label := run.Label()
		for _, res := range run.Results {
			s, ok := byName[res.Name]
			if !ok {
				s = &benchSeries{name: res.Name}
				byName[res.Name] = s
				order = append(order, res.Name)
			}
			s.labels = append(s.labels, label)
			s.results = append(s.results, res)
		}
	}
	out := make([]benchSeries, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// TimingPage charts ns/op of every benchmark across runs.
func TimingPage(runs []benchlab.Run) *components.Page {
	page := components.NewPage()
	for _, s := range groupResults(runs) {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: s.name, Subtitle: "ns/op"}))

		values := make([]opts.LineData, 0, len(s.results))
		for _, res := range s.results {
			values = append(values, opts.LineData{Value: res.NsPerOp})
		}

		line.SetXAxis(s.labels)
		line.AddSeries("ns/op", values)
		page.AddCharts(line)
	}
	return page
}

// AllocPage charts allocations per op of every benchmark across runs.
func AllocPage(runs []benchlab.Run) *components.Page {
	page := components.NewPage()
	for _, s := range groupResults(runs) {
		bar := charts.NewBar()
		bar.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: s.name, Subtitle: "allocs/op"}))

		values := make([]opts.BarData, 0, len(s.results))
		for _, res := range s.results {
			values = append(values, opts.BarData{Value: res.AllocsPerOp})
		}

		bar.SetXAxis(s.labels)
		bar.AddSeries("allocs/op", values)
		page.AddCharts(bar)
	}
	return page
}

// CounterPage charts one hardware event per op across runs. Benchmarks
// that never counted the event are left off the page.
func CounterPage(runs []benchlab.Run, event perfcount.Event) *components.Page {
	page := components.NewPage()
	for _, s := range groupResults(runs) {
		var (
			labels []string
			values []opts.LineData
		)
		for i, res := range s.results {
			c, ok := res.Counter(event)
			if !ok {
				continue
			}
			labels = append(labels, s.labels[i])
			values = append(values, opts.LineData{Value: c.PerOp})
		}
		if len(values) == 0 {
			continue
		}

		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithTitleOpts(opts.Title{Title: s.name, Subtitle: string(event) + " per op"}))
		line.SetXAxis(labels)
		line.AddSeries(string(event), values)
		page.AddCharts(line)
	}
	return page
}
