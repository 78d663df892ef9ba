// Package plot renders experiment data as interactive HTML charts
package plot

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Theme is the chart theme
const Theme = "shine"

// Returns writes an HTML page to w with two charts over episodes: the
// episodic returns and the number of switches taken up to each
// episode. switchEpisodes holds the episode of each switch.
func Returns(w io.Writer, title string, returns []float64,
	switchEpisodes []int) error {
	episodes := make([]string, len(returns))
	for i := range episodes {
		episodes[i] = fmt.Sprintf("%d", i)
	}

	returnItems := make([]opts.LineData, len(returns))
	for i, r := range returns {
		returnItems[i] = opts.LineData{Value: r}
	}

	ret := newLine(title, "Return")
	ret.SetXAxis(episodes).AddSeries("return", returnItems)

	switchItems := make([]opts.LineData, len(returns))
	for i := range switchItems {
		switchItems[i] = opts.LineData{Value: switchesUpTo(switchEpisodes, i)}
	}

	sw := newLine(title+" switches", "Switches")
	sw.SetXAxis(episodes).AddSeries("switches", switchItems)

	page := components.NewPage()
	page.AddCharts(ret, sw)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("returns: %w", err)
	}
	return nil
}

// SaveReturns writes the charts of Returns to the file at path
func SaveReturns(path, title string, returns []float64,
	switchEpisodes []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("saveReturns: %w", err)
	}
	defer f.Close()

	return Returns(f, title, returns, switchEpisodes)
}

func newLine(title, yName string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: Theme,
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Episode"}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	return line
}

// switchesUpTo returns the number of switches in episodes up to and
// including episode
func switchesUpTo(switchEpisodes []int, episode int) int {
	n := 0
	for _, e := range switchEpisodes {
		if e <= episode {
			n++
		}
	}
	return n
}
