package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/camuig/pankou/internal/changes"
	"github.com/camuig/pankou/internal/config"
	"github.com/camuig/pankou/internal/grouping"
	"github.com/camuig/pankou/internal/logger"
)

type sectorFlags []string

func (s *sectorFlags) String() string { return strings.Join(*s, ",") }

func (s *sectorFlags) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var sectors sectorFlags
	configPath := flag.String("config", "", "path to config file (defaults apply when empty)")
	asJSON := flag.Bool("json", false, "print the grouped view as JSON")
	flag.Var(&sectors, "sector", "only show this sector (repeatable)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SourceTimeout())
	defer cancel()

	client := changes.NewClient(cfg.Source.URL, cfg.SourceTimeout(), log.With("changes"))
	events, err := client.FetchChanges(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch changes error: %v\n", err)
		os.Exit(1)
	}

	view := grouping.Build(events, grouping.ParseHighlightRule(cfg.Poll.Highlight)).Select(sectors)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(view); err != nil {
			fmt.Fprintf(os.Stderr, "encode error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := renderTable(os.Stdout, view); err != nil {
		fmt.Fprintf(os.Stderr, "write error: %v\n", err)
		os.Exit(1)
	}
}
