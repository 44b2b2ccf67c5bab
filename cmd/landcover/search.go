package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/landcover/internal/app"
	"github.com/robert-malhotra/landcover/internal/config"
	"github.com/robert-malhotra/landcover/internal/pipeline"
	"github.com/robert-malhotra/landcover/internal/query"
	"github.com/robert-malhotra/landcover/internal/scene"
	"github.com/robert-malhotra/landcover/internal/session"
)

// Defaults for the search form: a 0.01 degree box under 10% cloud.
const (
	defaultCollection = "sentinel-2-l2a"
	defaultMaxCloud   = 10
	defaultLatitude   = 37.2502
	defaultLongitude  = -119.7513
	defaultBuffer     = 0.01
)

type searchOptions struct {
	collection string
	start      string
	end        string
	minCloud   float64
	maxCloud   float64
	lat        float64
	lon        float64
	buffer     float64
	date       string
	png        string
	stretch    string
	policy     string
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search scenes around a point and summarize their land cover",
		Example: `  landcover search --start 2023-06-01 --end 2023-06-30 --date 2023-06-05 --png preview.png
  landcover search --start 2023-06-01 --end 2023-06-30 --lat 46.5 --lon 7.9 --max-cloud 20`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.collection, "collection", defaultCollection, "collection to search")
	f.StringVar(&opts.start, "start", "", "start date (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "end date (YYYY-MM-DD)")
	f.Float64Var(&opts.minCloud, "min-cloud", 0, "minimum cloud cover percentage (exclusive)")
	f.Float64Var(&opts.maxCloud, "max-cloud", defaultMaxCloud, "maximum cloud cover percentage (exclusive)")
	f.Float64Var(&opts.lat, "lat", defaultLatitude, "latitude of the area of interest")
	f.Float64Var(&opts.lon, "lon", defaultLongitude, "longitude of the area of interest")
	f.Float64Var(&opts.buffer, "buffer", defaultBuffer, "half-width of the area of interest in degrees (0.01 is about 1 km)")
	f.StringVar(&opts.date, "date", "", "date label to summarize (default: first date when --png is set)")
	f.StringVar(&opts.png, "png", "", "write the RGB preview to this file")
	f.StringVar(&opts.stretch, "stretch", "robust", "preview stretch: robust or full")
	f.StringVar(&opts.policy, "nodata-policy", "", "override the no-data policy: exclude, dark-bright or bucket")

	for _, name := range []string{"start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runSearch(cmd *cobra.Command, opts *searchOptions) error {
	stretch, err := parseStretch(opts.stretch)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.policy != "" {
		cfg.Classify.NoDataPolicy = opts.policy
	}

	logger := app.NewLogger(os.Stderr, cfg.Logging.Level, "text")

	components, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	start, err := query.ParseDate(opts.start)
	if err != nil {
		return err
	}
	end, err := query.ParseDate(opts.end)
	if err != nil {
		return err
	}

	params := query.Params{
		Collection:    opts.collection,
		Start:         start,
		End:           end,
		MinCloudCover: opts.minCloud,
		MaxCloudCover: opts.maxCloud,
		Latitude:      opts.lat,
		Longitude:     opts.lon,
		Buffer:        opts.buffer,
	}

	sess := session.New("cli", app.SessionPolicy(cfg.Session))
	service := components.Service
	out := cmd.OutOrStdout()

	result, err := service.RunSearch(cmd.Context(), sess, params)
	if err != nil {
		if pipeline.IsNoResults(err) {
			fmt.Fprintln(out, noticeStyle.Render(sess.Snapshot().Notice))
			return nil
		}
		return err
	}

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("%d dates", len(result.Labels))))
	for _, label := range result.Labels {
		fmt.Fprintln(out, "  "+label)
	}

	if opts.date == "" && opts.png == "" {
		return nil
	}

	if opts.date != "" {
		if _, err := service.SelectDate(sess, opts.date); err != nil {
			if errors.Is(err, session.ErrUnknownDate) {
				return fmt.Errorf("%w; choose one of the dates listed above", err)
			}
			return err
		}
	}

	vis, err := service.Visualize(sess)
	if err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, renderSummary(vis.Date, vis.Summary))

	if opts.png != "" {
		if err := writePNG(opts.png, vis.RGB, stretch); err != nil {
			return err
		}
		logger.Info("wrote preview", slog.String("path", opts.png), slog.String("date", vis.Date))
	}

	return nil
}

func parseStretch(s string) (scene.Stretch, error) {
	switch s {
	case "", "robust":
		return scene.RobustStretch, nil
	case "full":
		return scene.Stretch{Low: 0, High: 100}, nil
	}
	return scene.Stretch{}, fmt.Errorf("stretch must be 'robust' or 'full', got %q", s)
}

func writePNG(path string, rgb *scene.RGBSlice, stretch scene.Stretch) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := scene.EncodePNG(f, rgb.Image(stretch)); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
