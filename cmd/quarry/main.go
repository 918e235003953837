// Command quarry is the operational CLI: batch ingestion from export
// directories or the BookStack API, timestamp remediation, and schema
// compliance checks.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthands/quarry/internal/backfill"
	"github.com/agenthands/quarry/internal/connector"
	"github.com/agenthands/quarry/internal/core"
	"github.com/agenthands/quarry/internal/core/extraction"
	"github.com/agenthands/quarry/internal/core/model"
	"github.com/agenthands/quarry/internal/driver"
	"github.com/agenthands/quarry/internal/llm"
	"github.com/agenthands/quarry/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using defaults")
	}

	root := &cobra.Command{
		Use:           "quarry",
		Short:         "Ingest documentation into a Graphiti-schema knowledge graph",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(ingestCmd(), watchCmd(), pullCmd(), backfillCmd(), validateCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func buildIngestor(ctx context.Context) (*core.Ingestor, driver.GraphDriver, error) {
	cfg := server.LoadConfig()

	d, err := driver.New(cfg.Graph)
	if err != nil {
		return nil, nil, err
	}
	if err := d.BuildIndices(ctx); err != nil {
		log.Printf("Warning: failed to build indices: %v", err)
	}

	var llmClient llm.LLMClient
	var embedder llm.EmbedderClient
	if cfg.LLM.Provider != "" {
		llmClient, embedder, err = llm.NewClient(ctx, cfg.LLM)
		if err != nil {
			return nil, nil, err
		}
	}

	extractor, err := extraction.New(cfg.Extractor, llmClient)
	if err != nil {
		return nil, nil, err
	}

	cache := llm.NewCachingEmbedder(embedder, cfg.Extractor.CacheCapacity)
	ing := core.NewIngestor(d, extractor, cache,
		cfg.Ingest.Namespace, cfg.Ingest.Source, cfg.Ingest.SourceDesc)

	return ing, d, nil
}

func ingestRecords(ctx context.Context, ing *core.Ingestor, records []model.SourceRecord) model.RunStats {
	var total model.RunStats
	for _, rec := range records {
		stats, err := ing.Ingest(ctx, rec)
		if err != nil {
			log.Printf("Failed to ingest %s: %v", rec.NativeID, err)
		}
		total.Add(stats)
	}
	return total
}

func ingestCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "ingest <export-dir>",
		Short: "Ingest a local JSON export directory once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ing, d, err := buildIngestor(ctx)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			load := connector.LoadBookStackDir
			if source == "huly" {
				load = connector.LoadHulyDir
			}

			records, err := load(args[0])
			if err != nil {
				return err
			}

			total := ingestRecords(ctx, ing, records)
			return printJSON(total)
		},
	}

	cmd.Flags().StringVar(&source, "source", "bookstack", "export format: bookstack or huly")
	return cmd
}

func watchCmd() *cobra.Command {
	var source string

	cmd := &cobra.Command{
		Use:   "watch <export-dir>",
		Short: "Continuously ingest an export directory as files change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ing, d, err := buildIngestor(ctx)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			cfg := server.LoadConfig()
			load := connector.LoadBookStackDir
			if source == "huly" {
				load = connector.LoadHulyDir
			}

			w := connector.NewWatcher(args[0], cfg.Ingest.RefreshInterval.Duration, load)
			return w.Run(ctx, func(ctx context.Context, rec model.SourceRecord) {
				if _, err := ing.Ingest(ctx, rec); err != nil {
					log.Printf("Failed to ingest %s: %v", rec.NativeID, err)
				}
			})
		},
	}

	cmd.Flags().StringVar(&source, "source", "bookstack", "export format: bookstack or huly")
	return cmd
}

func pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pull pages from the BookStack API and ingest them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := server.LoadConfig()

			client, err := connector.NewBookStackClient(cfg.BookStack)
			if err != nil {
				return err
			}

			ing, d, err := buildIngestor(ctx)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			records, skipped, err := client.ExportRecords(ctx)
			if err != nil {
				return err
			}

			total := ingestRecords(ctx, ing, records)
			total.Skipped += skipped
			return printJSON(total)
		},
	}
}

func backfillCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Normalize epoch timestamps in the graph to RFC3339 strings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := server.LoadConfig()

			d, err := driver.New(cfg.Graph)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			report, err := backfill.Timestamps(ctx, d, dryRun)
			if report != nil {
				printJSON(report)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report updates without executing them")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the graph for schema-conformance violations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := server.LoadConfig()

			d, err := driver.New(cfg.Graph)
			if err != nil {
				return err
			}
			defer d.Close(ctx)

			report, err := backfill.Validate(ctx, d)
			if err != nil {
				return err
			}
			if err := printJSON(report); err != nil {
				return err
			}
			if !report.Clean() {
				return fmt.Errorf("graph has schema violations")
			}
			return nil
		},
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
