// Command termgraph processes transcript files into a knowledge graph.
//
// Usage:
//
//	go run ./cmd/termgraph \
//	  --input ./transcripts/lecture01.txt \
//	  --mode smart \
//	  --graph-json ./graph.json \
//	  --xlsx ./report.xlsx \
//	  --db ./termgraph.db
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	termgraph "github.com/abekenov/termgraph"
	"github.com/abekenov/termgraph/export"
	"github.com/abekenov/termgraph/ingest"
	"github.com/abekenov/termgraph/store"
)

func main() {
	input := flag.String("input", "", "transcript file (.txt/.pdf) or directory of transcripts")
	mode := flag.String("mode", "smart", "validation mode: smart, soft, strict, off")
	minDensity := flag.Float64("min-density", 0, "density floor override (0 uses the mode default)")
	blockWords := flag.Int("block-words", 400, "approximate words per processing block")
	expectedRoot := flag.String("root", "", "pin hierarchy extraction to one root concept")
	termsPath := flag.String("terms", "", "domain terms vocabulary JSON (empty uses embedded)")
	forbiddenPath := flag.String("forbidden", "", "forbidden terms vocabulary JSON (empty uses embedded)")
	categoriesPath := flag.String("categories", "", "category vocabulary JSON (empty uses embedded)")
	graphJSON := flag.String("graph-json", "", "write graph snapshot JSON to this path")
	ragJSON := flag.String("rag-json", "", "write embedding-ready documents JSON to this path")
	xlsxPath := flag.String("xlsx", "", "write XLSX report to this path")
	dbPath := flag.String("db", "", "persist graph and text registry to this SQLite file")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *input == "" {
		fmt.Fprintln(os.Stderr, "termgraph: --input is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg := termgraph.DefaultConfig()
	cfg.ValidationMode = *mode
	cfg.MinDensity = *minDensity
	cfg.BlockWords = *blockWords
	cfg.ExpectedRoot = *expectedRoot
	cfg.TermsPath = *termsPath
	cfg.ForbiddenPath = *forbiddenPath
	cfg.CategoriesPath = *categoriesPath
	cfg.DBPath = *dbPath

	if err := run(cfg, *input, *graphJSON, *ragJSON, *xlsxPath); err != nil {
		fmt.Fprintf(os.Stderr, "termgraph: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg termgraph.Config, input, graphJSON, ragJSON, xlsxPath string) error {
	proc, err := termgraph.New(cfg)
	if err != nil {
		return err
	}

	paths, err := collectInputs(input)
	if err != nil {
		return err
	}

	var st *store.Store
	if cfg.DBPath != "" {
		st, err = store.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	ctx := context.Background()
	accepted, rejected := 0, 0
	for _, path := range paths {
		text, err := ingest.LoadTranscript(path)
		if err != nil {
			slog.Warn("skipping transcript", "path", path, "error", err)
			continue
		}
		blocks := ingest.SplitBlocks(text, cfg.BlockWords)
		baseID := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		results, err := proc.ProcessCorpus(blocks, baseID)
		if err != nil {
			return err
		}
		for _, r := range results {
			if r.IsValid {
				accepted++
			} else {
				rejected++
			}
			if st != nil {
				rec := store.TextRecord{
					TextID:       r.TextID,
					IsValid:      r.IsValid,
					Reason:       r.Reason,
					Density:      r.Density,
					PatternCount: r.PatternCount,
					ChainCount:   r.ChainCount,
					NodesAdded:   r.NodesAdded,
					EdgesAdded:   r.EdgesAdded,
				}
				if err := st.RecordText(ctx, rec); err != nil {
					return err
				}
			}
		}
	}

	stats := proc.Graph().Statistics()
	slog.Info("processing finished",
		"blocks_accepted", accepted,
		"blocks_rejected", rejected,
		"nodes", stats.TotalNodes,
		"edges", stats.TotalEdges)

	if st != nil {
		if err := st.SaveGraph(ctx, proc.Graph()); err != nil {
			return err
		}
	}
	if graphJSON != "" {
		if err := proc.Graph().SaveJSON(graphJSON); err != nil {
			return err
		}
	}
	if ragJSON != "" {
		docs := export.FormatGraph(proc.Graph())
		raw, err := json.MarshalIndent(docs, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling rag documents: %w", err)
		}
		if err := os.WriteFile(ragJSON, raw, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", ragJSON, err)
		}
	}
	if xlsxPath != "" {
		if err := export.WriteXLSX(proc.Graph(), xlsxPath); err != nil {
			return err
		}
	}
	return nil
}

func collectInputs(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", input, err)
	}
	if !info.IsDir() {
		return []string{input}, nil
	}
	entries, err := os.ReadDir(input)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", input, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".txt", ".text", ".md", ".pdf":
			out = append(out, filepath.Join(input, e.Name()))
		}
	}
	return out, nil
}
