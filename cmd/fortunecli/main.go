package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0x0FACED/fortune-voronoi/pkg/logger"
	"github.com/0x0FACED/fortune-voronoi/pkg/voronoi"
	"github.com/0x0FACED/fortune-voronoi/pkg/voronoi/voronoijson"
)

type flags struct {
	sites    int
	width    int
	height   int
	seed     int64
	inPath   string
	outPath  string
	htmlPath string
	logLevel string
	grid     bool
}

func main() {
	f := &flags{}

	root := &cobra.Command{
		Use:   "fortunecli",
		Short: "Compute the Voronoi diagram of a set of 2D sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(f)
		},
	}

	root.Flags().IntVar(&f.sites, "sites", 12, "number of randomly generated sites")
	root.Flags().IntVar(&f.width, "width", 800, "viewport width")
	root.Flags().IntVar(&f.height, "height", 600, "viewport height")
	root.Flags().Int64Var(&f.seed, "seed", 1, "seed for random site generation")
	root.Flags().StringVar(&f.inPath, "in", "", "path to a JSON file of {x,y} sites; overrides -sites")
	root.Flags().StringVar(&f.outPath, "out", "", "path to write the computed diagram as JSON")
	root.Flags().StringVar(&f.htmlPath, "html", "", "path to write an HTML scatter/line rendering of the diagram")
	root.Flags().StringVar(&f.logLevel, "log-level", "info", "debug, info, warn, or error")
	root.Flags().BoolVar(&f.grid, "grid", false, "lay generated sites out on an even grid instead of scattering them randomly")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(f *flags) error {
	log := logger.New(f.logLevel)
	defer log.Sync()

	sites, err := loadSites(f)
	if err != nil {
		return err
	}

	bbox := voronoi.NewBoundingBox(0, float64(f.width), 0, float64(f.height))

	engine := voronoi.New(log)
	diagram, err := engine.Compute(sites, bbox)
	if err != nil {
		return err
	}

	if f.outPath != "" {
		if err := writeJSON(f.outPath, diagram); err != nil {
			return err
		}
		log.Info("wrote diagram JSON", zap.String("path", f.outPath))
	}

	if f.htmlPath != "" {
		if err := writeHTML(f.htmlPath, sites, diagram); err != nil {
			return err
		}
		log.Info("wrote diagram HTML", zap.String("path", f.htmlPath))
	}

	if f.outPath == "" && f.htmlPath == "" {
		fmt.Printf("sites=%d cells=%d edges=%d elapsed=%.6fs\n",
			len(sites), len(diagram.Cells), len(diagram.Edges), diagram.ExecTime)
	}

	return nil
}

func loadSites(f *flags) ([]voronoi.Site, error) {
	if f.inPath != "" {
		file, err := os.Open(f.inPath)
		if err != nil {
			return nil, fmt.Errorf("fortunecli: open %s: %w", f.inPath, err)
		}
		defer file.Close()
		return voronoijson.DecodeSites(file)
	}
	if f.grid {
		return generateGridSites(f.sites, f.width, f.height), nil
	}
	return generateRandomSites(f.sites, f.width, f.height, f.seed), nil
}

// generateRandomSites scatters n sites uniformly across the width x height
// viewport, seeded for reproducible runs.
func generateRandomSites(n, width, height int, seed int64) []voronoi.Site {
	rng := rand.New(rand.NewSource(seed))
	sites := make([]voronoi.Site, n)
	for i := 0; i < n; i++ {
		sites[i] = voronoi.Site{
			X:  float64(rng.Intn(width)),
			Y:  float64(rng.Intn(height)),
			ID: i,
		}
	}
	return sites
}

// generateGridSites lays out n sites on as square a grid as n allows, for
// callers who want a deterministic, visually even layout without random
// jitter.
func generateGridSites(n, width, height int) []voronoi.Site {
	rows := int(math.Sqrt(float64(n)))
	if rows < 1 {
		rows = 1
	}
	cols := (n + rows - 1) / rows

	xStep := float64(width) / float64(cols)
	yStep := float64(height) / float64(rows)

	sites := make([]voronoi.Site, 0, n)
	for i := 0; i < rows && len(sites) < n; i++ {
		for j := 0; j < cols && len(sites) < n; j++ {
			sites = append(sites, voronoi.Site{
				X:  xStep/2 + float64(j)*xStep,
				Y:  yStep/2 + float64(i)*yStep,
				ID: len(sites),
			})
		}
	}
	return sites
}

func writeJSON(path string, diagram *voronoi.Diagram) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fortunecli: create %s: %w", path, err)
	}
	defer file.Close()
	return voronoijson.Write(file, diagram)
}

func writeHTML(path string, sites []voronoi.Site, diagram *voronoi.Diagram) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fortunecli: create %s: %w", path, err)
	}
	defer file.Close()
	return diagramToScatter(sites, diagram).Render(file)
}

// diagramToScatter lays the sites out as a scatter series and every
// surviving edge as a two-point line series overlaid on top of it.
func diagramToScatter(sites []voronoi.Site, diagram *voronoi.Diagram) *charts.Scatter {
	scatter := charts.NewScatter()
	prepareScatter(scatter)

	points := make([]opts.ScatterData, 0, len(sites))
	for _, s := range sites {
		points = append(points, opts.ScatterData{Value: []float64{s.X, s.Y}})
	}
	scatter.AddSeries("sites", points).SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "lightgreen"}),
	)

	for _, edge := range diagram.Edges {
		line := charts.NewLine()
		line.SetGlobalOptions(
			charts.WithXAxisOpts(opts.XAxis{Show: opts.Bool(true)}),
			charts.WithYAxisOpts(opts.YAxis{Show: opts.Bool(true)}),
		)
		line.AddSeries("edges", []opts.LineData{
			{Value: []float64{edge.Va.X, edge.Va.Y}},
			{Value: []float64{edge.Vb.X, edge.Vb.Y}},
		}).SetSeriesOptions(
			charts.WithLineStyleOpts(opts.LineStyle{Width: 2}),
		)
		scatter.Overlap(line)
	}

	return scatter
}

func prepareScatter(scatter *charts.Scatter) {
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Height: "720px",
			Width:  "1000px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Voronoi diagram",
			Left:  "10%",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "value",
			Name: "x",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(false),
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
			Name: "y",
			SplitLine: &opts.SplitLine{
				Show: opts.Bool(false),
			},
		}),
	)
}
