// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litfiler/internal/index"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search over the library catalog",
	Long: `Search matches the query against paper titles, abstracts, and
summaries using the catalog's full-text index, ranked by relevance.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	p, cleanup, err := buildPipeline(pipelineConfig())
	if err != nil {
		return err
	}
	defer cleanup()

	hits, err := p.Catalog.Search(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}
	return formatSearchOutput(hits, jsonOutput)
}

func formatSearchOutput(hits []index.SearchHit, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-6s  %-50s  %-25s  %s\n",
		"Rank", "Year", "Title", "Topics", "Status")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))

	for i, h := range hits {
		title := h.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		topicList := strings.Join(h.Topics, ",")
		if len(topicList) > 25 {
			topicList = topicList[:22] + "..."
		}
		year := ""
		if h.Year != 0 {
			year = fmt.Sprintf("%d", h.Year)
		}
		fmt.Fprintf(os.Stdout, "%-4d  %-6s  %-50s  %-25s  %s\n",
			i+1, year, title, topicList, h.Status)
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(hits))
	return nil
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the search catalog from the library index",
	Long: `Rebuild drops and repopulates the SQLite catalog from the YAML
index. The index is the source of truth; run this after restoring or
hand-editing it.`,
	RunE: runRebuild,
}

func runRebuild(cmd *cobra.Command, args []string) error {
	p, cleanup, err := buildPipeline(pipelineConfig())
	if err != nil {
		return err
	}
	defer cleanup()

	records := p.Index.All()
	if err := p.Catalog.Rebuild(context.Background(), records); err != nil {
		return err
	}
	fmt.Printf("Rebuilt catalog from %d record(s)\n", len(records))
	return nil
}

func init() {
	searchCmd.Flags().Int("limit", 20, "maximum number of results")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(rebuildCmd)
}
