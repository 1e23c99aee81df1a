// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Process every PDF currently in the inbox",
	Long: `Process drains the inbox once: each PDF's metadata is resolved,
duplicates are detected against the library index, and the topic matcher
either files the paper under by-topic/ or holds it in recent/ for review.
Papers that cannot be parsed land in unknowables/ or corrupted/.`,
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	p, cleanup, err := buildPipeline(pipelineConfig())
	if err != nil {
		return err
	}
	defer cleanup()

	summary, err := p.ProcessInbox(context.Background(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d paper(s) failed processing", summary.Failed)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(processCmd)
}
