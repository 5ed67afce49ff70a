package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"

	"github.com/nvr-ai/fishcount/config"
	"github.com/nvr-ai/fishcount/results"
)

func historyCmd(cfg *config.Config, args []string) int {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.StringVar(&cfg.ResultsFile, "results", cfg.ResultsFile, "CSV file of run records")
	last := fs.Int("last", 0, "Only show the most recent N runs (0 for all)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	records, err := results.ReadAll(cfg.ResultsFile)
	if err != nil {
		if os.IsNotExist(errors.Cause(err)) {
			fmt.Printf("No runs recorded in %s\n", cfg.ResultsFile)
			return 0
		}
		fmt.Fprintf(os.Stderr, "history: %v\n", err)
		return 1
	}
	if *last > 0 && len(records) > *last {
		records = records[len(records)-*last:]
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tVIDEO\tMASK\tCOUNT\tOUTPUT")
	total := 0
	for _, r := range records {
		row := r.Row()
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", row[4], r.VideoFile, row[0], r.FishCount, r.ProcessedVideoPath)
		total += r.FishCount
	}
	w.Flush()
	fmt.Printf("\n%d runs, %d fish\n", len(records), total)
	return 0
}
