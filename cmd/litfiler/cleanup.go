// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired files from the recent/ holding area",
	Long: `Cleanup deletes holding-area copies older than the retention window.
Papers still awaiting review are never removed, regardless of age. The
watch command runs this sweep automatically every night.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	p, cleanup, err := buildPipeline(pipelineConfig())
	if err != nil {
		return err
	}
	defer cleanup()

	removed, err := p.CleanupRecent(os.Stdout)
	if err != nil {
		return err
	}
	if removed == 0 {
		fmt.Println("Nothing to clean.")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
