// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litfiler/pkg/types"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show library statistics",
	Long: `Stats summarizes the library: paper counts by filing status and by
topic, and the publication year range.`,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	p, cleanup, err := buildPipeline(pipelineConfig())
	if err != nil {
		return err
	}
	defer cleanup()

	stats, err := p.Catalog.Stats(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Papers: %d\n", stats.TotalPapers)
	if stats.YearMin != 0 {
		fmt.Printf("Years:  %d-%d\n", stats.YearMin, stats.YearMax)
	}

	if len(stats.ByStatus) > 0 {
		fmt.Println("\nBy status:")
		statuses := make([]string, 0, len(stats.ByStatus))
		for s := range stats.ByStatus {
			statuses = append(statuses, string(s))
		}
		sort.Strings(statuses)
		for _, s := range statuses {
			fmt.Printf("  %-24s %d\n", s, stats.ByStatus[types.FilingStatus(s)])
		}
	}

	if len(stats.ByTopic) > 0 {
		fmt.Println("\nBy topic:")
		topics := make([]string, 0, len(stats.ByTopic))
		for t := range stats.ByTopic {
			topics = append(topics, t)
		}
		sort.Strings(topics)
		for _, t := range topics {
			fmt.Printf("  %-24s %d\n", t, stats.ByTopic[t])
		}
	}

	if profiled := p.Profiles.PaperCount(); profiled > 0 {
		fmt.Printf("\nPapers in topic profiles: %d\n", profiled)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
