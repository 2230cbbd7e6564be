package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/prodsearch/internal/db"
	dbSQLite "github.com/kailas-cloud/prodsearch/internal/db/sqlite"
	"github.com/kailas-cloud/prodsearch/internal/version"
	"github.com/kailas-cloud/prodsearch/pkg/client"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "searchctl",
		Usage:   "Operate a running prodsearch server",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Aliases: []string{"a"},
				Usage:   "Server base URL",
				Value:   "http://localhost:8080",
				EnvVars: []string{"PRODSEARCH_ADDR"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Bearer API key",
				EnvVars: []string{"PRODSEARCH_API_KEY"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 10 * time.Second,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log each request to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Run a ranked product search",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Page size (server default when 0)"},
					&cli.IntFlag{Name: "offset", Usage: "Rows to skip"},
					&cli.StringFlag{Name: "strategy", Usage: "fuzzy or fulltext"},
					&cli.StringFlag{Name: "mode", Usage: "ranked or weighted"},
					&cli.StringSliceFlag{Name: "filter", Aliases: []string{"f"}, Usage: "Equality filter as key=value (repeatable)"},
				},
			},
			{
				Name:      "suggest",
				Usage:     "Show query completions",
				ArgsUsage: "<prefix>",
				Action:    suggestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum completions"},
					&cli.BoolFlag{Name: "popular", Usage: "Include popular queries"},
				},
			},
			{
				Name:   "metrics",
				Usage:  "Show the search performance report",
				Action: metricsCommand,
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "slow-threshold-ms", Usage: "Slow search threshold (server default when unset)"},
				},
			},
			{
				Name:  "cache",
				Usage: "Manage the result cache",
				Subcommands: []*cli.Command{
					{
						Name:   "clear",
						Usage:  "Remove cached results",
						Action: cacheClearCommand,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "pattern", Aliases: []string{"p"}, Usage: "Only keys containing this substring"},
						},
					},
				},
			},
			{
				Name:   "health",
				Usage:  "Show server health",
				Action: healthCommand,
			},
			{
				Name:   "seed",
				Usage:  "Load products from a JSON file into a SQLite database",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Usage: "SQLite database path", Required: true},
					&cli.StringFlag{Name: "file", Usage: "JSON array of products", Required: true},
				},
			},
		},
	}
}

func newClient(c *cli.Context) (*client.Client, error) {
	opts := []client.Option{client.WithTimeout(c.Duration("timeout"))}
	if key := c.String("api-key"); key != "" {
		opts = append(opts, client.WithAPIKey(key))
	}
	if c.Bool("verbose") {
		opts = append(opts, client.WithLogger(slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))))
	}
	cl, err := client.New(c.String("addr"), opts...)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return cl, nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: searchctl search <query>", 2)
	}
	filters, err := parseFilters(c.StringSlice("filter"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}

	req := client.SearchRequest{Query: c.Args().First(), Filters: filters}
	if n := c.Int("limit"); n > 0 {
		req.Limit = client.Int(n)
	}
	if n := c.Int("offset"); n > 0 {
		req.Offset = client.Int(n)
	}
	if s := c.String("strategy"); s != "" {
		req.Strategy = client.String(s)
	}
	if m := c.String("mode"); m != "" {
		req.Mode = client.String(m)
	}

	res, err := cl.Search(c.Context, req)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, res)
}

func suggestCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: searchctl suggest <prefix>", 2)
	}
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	res, err := cl.Suggest(c.Context, c.Args().First(), c.Int("limit"), c.Bool("popular"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, res)
}

func metricsCommand(c *cli.Context) error {
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	var threshold *float64
	if c.IsSet("slow-threshold-ms") {
		threshold = client.Float(c.Float64("slow-threshold-ms"))
	}
	res, err := cl.Metrics(c.Context, threshold)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, res)
}

func cacheClearCommand(c *cli.Context) error {
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	n, err := cl.ClearCache(c.Context, c.String("pattern"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(c.App.Writer, "cleared %d cached results\n", n)
	return err
}

func healthCommand(c *cli.Context) error {
	cl, err := newClient(c)
	if err != nil {
		return err
	}
	hs, err := cl.Health(c.Context)
	if err != nil {
		return err
	}
	if err := printJSON(c.App.Writer, hs); err != nil {
		return err
	}
	if hs.Status != "ok" {
		return cli.Exit("", 1)
	}
	return nil
}

// seedProduct is one entry of the seed file.
type seedProduct struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Description         *string        `json:"description"`
	Keywords            []string       `json:"keywords"`
	TrendScore          *float64       `json:"trend_score"`
	RecommendationScore *float64       `json:"recommendation_score"`
	SalesRank           *int64         `json:"sales_rank"`
	Price               *float64       `json:"price"`
	CreatedAt           *time.Time     `json:"created_at"`
	Attrs               map[string]any `json:"attrs"`
}

func seedCommand(c *cli.Context) error {
	data, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	products, err := decodeSeed(data)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, time.Minute)
	defer cancel()

	store, err := dbSQLite.NewStore(ctx, dbSQLite.Config{DSN: c.String("db")})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Upsert(ctx, products...); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}
	_, err = fmt.Fprintf(c.App.Writer, "seeded %d products\n", len(products))
	return err
}

func decodeSeed(data []byte) ([]dbSQLite.Product, error) {
	var in []seedProduct
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	out := make([]dbSQLite.Product, 0, len(in))
	for i, p := range in {
		if p.ID == "" || p.Name == "" {
			return nil, fmt.Errorf("product %d: id and name are required", i)
		}
		out = append(out, dbSQLite.Product{
			ProductRow: db.ProductRow{
				ID:                  p.ID,
				Name:                p.Name,
				Description:         p.Description,
				Keywords:            p.Keywords,
				TrendScore:          p.TrendScore,
				RecommendationScore: p.RecommendationScore,
				SalesRank:           p.SalesRank,
				Price:               p.Price,
				CreatedAt:           p.CreatedAt,
			},
			Attrs: p.Attrs,
		})
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
