// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litfiler/internal/topics"
	"github.com/pdiddy/litfiler/pkg/types"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Walk the held-for-review queue and file papers manually",
	Long: `Review steps through papers the matcher could not confidently place.
For each paper the metadata and topic suggestion are shown; accept the
suggestion, type your own topic slugs, or skip. Filed papers update the
topic profiles exactly as auto-filing does.`,
	RunE: runReview,
}

func runReview(cmd *cobra.Command, args []string) error {
	p, cleanup, err := buildPipeline(pipelineConfig())
	if err != nil {
		return err
	}
	defer cleanup()

	pending := p.Index.ByStatus(types.StatusNeedsReview)
	pending = append(pending, p.Index.ByStatus(types.StatusNeedsReviewNewTopic)...)
	if len(pending) == 0 {
		fmt.Println("Nothing to review.")
		return nil
	}

	taxonomy := p.Matcher.Taxonomy
	scanner := bufio.NewScanner(os.Stdin)
	filed := 0

	for i, rec := range pending {
		fmt.Printf("\n[%d/%d] %s\n", i+1, len(pending), rec.Title)
		if len(rec.Authors) > 0 {
			fmt.Printf("        %s", strings.Join(rec.Authors, "; "))
			if rec.Year != 0 {
				fmt.Printf(" (%d)", rec.Year)
			}
			fmt.Println()
		}
		if rec.Summary != "" {
			fmt.Printf("        %s\n", rec.Summary)
		}
		switch {
		case len(rec.Topics) > 0:
			fmt.Printf("        suggested: %s (%.2f)\n", strings.Join(rec.Topics, ", "), rec.MatchScore)
		case len(rec.SuggestedTopics) > 0:
			fmt.Printf("        suggested: %s\n", strings.Join(rec.SuggestedTopics, ", "))
		default:
			fmt.Println("        no suggestion; possibly a new topic")
		}

		chosen, quit := promptChoice(scanner, rec, taxonomy)
		if quit {
			break
		}
		if chosen == nil {
			continue
		}

		if err := p.FileManual(context.Background(), rec, chosen); err != nil {
			return err
		}
		fmt.Printf("        filed under %s\n", strings.Join(chosen, ", "))
		filed++
	}

	fmt.Printf("\n%d paper(s) filed, %d remaining\n", filed, len(pending)-filed)
	return nil
}

// promptChoice reads one review decision. Returns the chosen slugs, or
// nil to skip; quit is set when the reviewer is done.
func promptChoice(scanner *bufio.Scanner, rec *types.MetadataRecord, taxonomy *topics.Taxonomy) (chosen []string, quit bool) {
	for {
		fmt.Print("        [a]ccept, [t]opics, [s]kip, [q]uit? ")
		if !scanner.Scan() {
			return nil, true
		}

		switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
		case "a":
			if len(rec.Topics) > 0 {
				return rec.Topics, false
			}
			if len(rec.SuggestedTopics) > 0 {
				return rec.SuggestedTopics, false
			}
			fmt.Println("        no suggestion to accept")

		case "t":
			fmt.Print("        slugs (comma-separated): ")
			if !scanner.Scan() {
				return nil, true
			}
			slugs, err := parseSlugs(scanner.Text(), taxonomy)
			if err != nil {
				fmt.Printf("        %v\n", err)
				continue
			}
			return slugs, false

		case "s", "":
			return nil, false

		case "q":
			return nil, true
		}
	}
}

// parseSlugs validates a comma-separated topic list against the closed
// taxonomy, including pairing rules.
func parseSlugs(input string, taxonomy *topics.Taxonomy) ([]string, error) {
	var slugs []string
	for _, raw := range strings.Split(input, ",") {
		slug := strings.TrimSpace(strings.ToLower(raw))
		if slug == "" {
			continue
		}
		if !taxonomy.Contains(slug) {
			return nil, fmt.Errorf("unknown topic %q (see topics.yaml)", slug)
		}
		for _, prior := range slugs {
			if !taxonomy.PairingAllowed(prior, slug) {
				return nil, fmt.Errorf("topics %q and %q cannot be combined", prior, slug)
			}
		}
		slugs = append(slugs, slug)
	}
	if len(slugs) == 0 {
		return nil, fmt.Errorf("no topics given")
	}
	if max := taxonomy.MaxTopics(); len(slugs) > max {
		return nil, fmt.Errorf("at most %d topics per paper", max)
	}
	return slugs, nil
}

func init() {
	rootCmd.AddCommand(reviewCmd)
}
