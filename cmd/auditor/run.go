package main

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fitops/auditor/internal/service"
)

var runCategory string

var runCmd = &cobra.Command{
	Use:   "run <file> [file...]",
	Short: "Audit membership export files and write reports",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runAudit(args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runCategory, "category", "c", "",
		"membership category to audit the files as (default: per-record category)")
}

func runAudit(paths []string) {
	cfg := loadRules()
	svc := service.NewService(cfg, nil, nil, viper.GetString("outputs_dir"))

	var uploads []service.Upload
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			log.WithError(err).WithField("file", path).Fatal("Failed to read input file")
		}
		uploads = append(uploads, service.Upload{
			Filename: filepath.Base(path),
			Data:     data,
		})
	}

	resp, err := svc.AuditBatch(uploads, runCategory)
	if err != nil {
		log.WithError(err).Fatal("Audit failed")
	}

	var totalRecords, totalFlagged int
	var totalImpact float64

	for _, fr := range resp.Files {
		if fr.Error != "" {
			fmt.Printf("%-40s SKIPPED: %s\n", fr.Filename, fr.Error)
			continue
		}
		fmt.Printf("%-40s %5d records  %5d flagged (%.1f%%)  $%.2f at risk  -> %s\n",
			fr.Filename, fr.TotalRecords, fr.FlaggedCount, fr.FlaggedPercent,
			fr.TotalImpact, fr.ReportFile)

		totalRecords += fr.TotalRecords
		totalFlagged += fr.FlaggedCount
		totalImpact += fr.TotalImpact
	}

	if len(resp.Files) > 1 {
		fmt.Printf("\nTOTALS: %d records, %d flagged, $%.2f at risk\n",
			totalRecords, totalFlagged, totalImpact)
	}
}
