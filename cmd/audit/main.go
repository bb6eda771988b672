package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/civicdesk/api/internal/audit"
	"github.com/civicdesk/api/internal/config"
	"github.com/civicdesk/api/internal/database"
)

func main() {
	workers := flag.Int("workers", 10, "Number of parallel workers")
	batchSize := flag.Int("batch", 500, "Rows loaded per query")
	outputFile := flag.String("output", "audit_results.json", "Output file for results")
	flag.Parse()

	cfg := config.Load()
	cfg.LogSQL = false
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	fmt.Printf("Auditing status history with %d workers...\n", *workers)

	scanner := audit.NewScanner(db, *workers, *batchSize)
	scanner.OnProgress = func(checked int64) {
		fmt.Printf("Progress: %d records checked\n", checked)
	}

	startTime := time.Now()
	summary, err := scanner.Run(context.Background())
	if err != nil {
		log.Fatalf("Audit failed: %v", err)
	}
	elapsed := time.Since(startTime)

	total := summary.Reports + summary.Emergencies
	fmt.Printf("\n=== Audit Complete ===\n")
	fmt.Printf("Reports: %d, Emergencies: %d\n", summary.Reports, summary.Emergencies)
	fmt.Printf("Issues found: %d\n", len(summary.Issues))
	fmt.Printf("Time elapsed: %v\n", elapsed)

	issuesByType := make(map[string][]audit.Issue)
	for _, issue := range summary.Issues {
		issuesByType[issue.Type] = append(issuesByType[issue.Type], issue)
	}

	fmt.Printf("\n=== Issues by Type ===\n")
	for typ, typeIssues := range issuesByType {
		fmt.Printf("%s: %d\n", typ, len(typeIssues))
	}

	output := map[string]interface{}{
		"summary": map[string]interface{}{
			"total":       total,
			"reports":     summary.Reports,
			"emergencies": summary.Emergencies,
			"issues":      len(summary.Issues),
			"elapsed":     elapsed.String(),
		},
		"issuesByType": issuesByType,
		"issues":       summary.Issues,
	}

	jsonData, _ := json.MarshalIndent(output, "", "  ")
	if err := os.WriteFile(*outputFile, jsonData, 0644); err != nil {
		log.Printf("Failed to write output file: %v", err)
	} else {
		fmt.Printf("\nResults saved to %s\n", *outputFile)
	}

	if len(summary.Issues) > 0 {
		os.Exit(1)
	}
}
