// Command ingest bulk-loads a directory of transcript files into a fresh
// store and exits. It stands in for the "CLI argument parsing" collaborator
// spec.md §1 declares external to the core: everything it does is a thin
// shell around package tavla's store.Build / loader.Registry.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivrit-ai/tavla"
	"github.com/ivrit-ai/tavla/loader"
	"github.com/ivrit-ai/tavla/store"
)

var (
	cfgFile   string
	storePath string
	srcDir    string
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nforced exit")
		os.Exit(1)
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Bulk-load a directory of transcripts into a fresh tavla store",
	Long: `ingest walks a directory tree of transcript JSON/subtitle files and
builds a fresh on-disk index: a parser worker pool (CPU-bound JSON/subtitle
parsing) feeds a bounded queue drained by a single writer, which commits in
chunked transactions and rebuilds secondary indexes once the load completes.

A rebuild refuses to run against a store file that already exists.`,
	RunE: runIngest,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "path to a YAML config file")
	rootCmd.Flags().StringVar(&storePath, "store", "", "path to the store file to create (overrides config)")
	rootCmd.Flags().StringVar(&srcDir, "dir", "", "directory of transcript files to ingest (required)")
	rootCmd.MarkFlagRequired("dir")
}

func runIngest(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := tavla.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	if storePath != "" {
		cfg.StorePath = storePath
	}

	files, err := discoverFiles(srcDir)
	if err != nil {
		return fmt.Errorf("discovering transcript files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no transcript files found under %s", srcDir)
	}
	slog.Info("discovered transcript files", "count", len(files), "dir", srcDir)

	s, err := store.Open(cfg.StorePath, true)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	registry := loader.NewRegistry()
	parse := func(ctx context.Context, path string, docID int64) (store.ParsedDocument, error) {
		res, err := registry.Load(path)
		if err != nil {
			return store.ParsedDocument{}, err
		}
		segs := make([]store.ParsedSegment, len(res.Segments))
		for i, s := range res.Segments {
			segs[i] = store.ParsedSegment{
				SegmentID:  i,
				Text:       s.Text,
				CharOffset: s.CharOffset,
				StartTime:  s.Start,
				EndTime:    s.End,
				AvgLogprob: s.AvgLogprob,
			}
		}
		return store.ParsedDocument{
			DocID:        docID,
			Source:       res.Episode.Source,
			Episode:      res.Episode.Episode,
			EpisodeDate:  res.Episode.EpisodeDate,
			EpisodeTitle: res.Episode.EpisodeTitle,
			FullText:     res.FullText,
			Segments:     segs,
		}, nil
	}

	buildCfg := store.BulkWriterConfig{
		Parallelism:  cfg.ParserParallelism,
		QueueSize:    cfg.QueueSize,
		DocBatch:     cfg.DocBatch,
		SegmentBatch: cfg.SegmentBatch,
		DocsPerTx:    cfg.DocsPerTx,
	}

	if err := s.Build(cmd.Context(), files, parse, buildCfg); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	stats, err := s.GetDocumentStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading final stats: %w", err)
	}
	slog.Info("ingest complete", "documents", stats.DocCount, "total_chars", stats.TotalChars, "store", cfg.StorePath)
	return nil
}

// discoverFiles walks dir for recognised transcript files and returns them
// in lexicographic order — spec.md §9 ties doc_id stability to a
// deterministic file listing, and a sorted walk is the simplest such order.
func discoverFiles(dir string) ([]string, error) {
	var files []string
	exts := map[string]bool{".json": true, ".srt": true, ".vtt": true, ".ass": true, ".ssa": true}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if exts[filepath.Ext(path)] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
