package report

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/flightpath/internal/recorder"
)

// RenderErrorChart writes an HTML page with the position error and the
// altitude of both tracks over time.
func RenderErrorChart(w io.Writer, original, reconstructed []recorder.Entry) error {
	errs := PositionErrors(original, reconstructed)

	times := make([]string, len(errs))
	errData := make([]opts.LineData, len(errs))
	var maxErr float64
	for i, e := range errs {
		times[i] = strconv.FormatFloat(e.Time, 'f', 2, 64)
		errData[i] = opts.LineData{Value: e.Error}
		maxErr = max(maxErr, e.Error)
	}

	errLine := charts.NewLine()
	errLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "FlightPath report", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Position error", Subtitle: fmt.Sprintf("samples=%d max=%.2f m", len(errs), maxErr)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "t (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "error (m)"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)
	errLine.SetXAxis(times).AddSeries("error", errData)

	altLine := charts.NewLine()
	altLine.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Altitude"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "altitude (m)", Scale: opts.Bool(true)}),
	)
	altTimes, origAlt, recAlt := altitudeSeries(original, reconstructed)
	altLine.SetXAxis(altTimes).
		AddSeries("original", origAlt).
		AddSeries("reconstructed", recAlt)

	page := components.NewPage()
	page.PageTitle = "FlightPath report"
	page.AddCharts(errLine, altLine)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// altitudeSeries samples both tracks on the original timestamps. Missing
// reconstructed samples are left as gaps.
func altitudeSeries(original, reconstructed []recorder.Entry) ([]string, []opts.LineData, []opts.LineData) {
	byTime := make(map[string]float64, len(reconstructed))
	for _, e := range reconstructed {
		byTime[strconv.FormatFloat(e.Time, 'f', 2, 64)] = e.Altitude
	}

	times := make([]string, len(original))
	orig := make([]opts.LineData, len(original))
	rec := make([]opts.LineData, len(original))
	for i, e := range original {
		key := strconv.FormatFloat(e.Time, 'f', 2, 64)
		times[i] = key
		orig[i] = opts.LineData{Value: e.Altitude}
		if alt, ok := byTime[key]; ok {
			rec[i] = opts.LineData{Value: alt}
		} else {
			rec[i] = opts.LineData{Value: "-"}
		}
	}
	return times, orig, rec
}

// WriteErrorChart saves the HTML report to path.
func (w *Writer) WriteErrorChart(path string, original, reconstructed []recorder.Entry) error {
	f, err := w.fs.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := RenderErrorChart(f, original, reconstructed); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
