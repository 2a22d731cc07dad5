// Command essmoke exercises the prediction index against a live
// Elasticsearch cluster: create, bulk store, list, search and aggregate.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"webattack-detector/go-service/internal/elastic"
	"webattack-detector/go-service/internal/pipeline"
	"webattack-detector/go-service/internal/preprocessing"
	"webattack-detector/go-service/internal/source"
)

func main() {
	addrs := flag.String("addresses", "http://localhost:9200", "comma separated Elasticsearch addresses")
	index := flag.String("index", "predictions-smoke", "index to write to")
	flag.Parse()

	esClient, err := elastic.NewClient(strings.Split(*addrs, ","), *index)
	if err != nil {
		log.Fatalf("Failed to connect to Elasticsearch: %v", err)
	}
	defer esClient.Close()

	ctx := context.Background()

	if err := esClient.CreateIndex(ctx); err != nil {
		log.Fatalf("Failed to create index: %v", err)
	}
	fmt.Printf("✅ Index %s ready\n", esClient.Index())

	// Test 1: store a run built from the demo lines
	fmt.Println("\n🔍 Test 1: Bulk store predictions")

	n := preprocessing.StructuredNormalizer{}
	result := &pipeline.Result{
		RunID:      fmt.Sprintf("smoke-%d", time.Now().UnixNano()),
		Variant:    n.Variant(),
		FinishedAt: time.Now().UTC(),
	}
	for _, line := range source.DemoLines {
		text, _ := n.Normalize(line)
		signals := preprocessing.ExtractSignals(preprocessing.ParseFields(line).Get(preprocessing.FieldURL, "/"))
		pr := pipeline.Prediction{Input: text, Label: "Normal"}
		if len(signals) > 0 {
			pr.ClassIndex, pr.Label, pr.Attack = 1, "Attack", true
		}
		result.Predictions = append(result.Predictions, pr)
	}

	if err := esClient.StorePredictions(ctx, result); err != nil {
		log.Fatalf("Failed to store predictions: %v", err)
	}
	fmt.Printf("✅ Stored %d predictions for run %s\n", len(result.Predictions), result.RunID)

	// Test 2: list attacks
	fmt.Println("\n🔍 Test 2: Get attacks")

	attacks, err := esClient.GetAttacks(ctx, 0, 10)
	if err != nil {
		log.Printf("Failed to get attacks: %v", err)
	} else {
		fmt.Printf("✅ Found %d attacks\n", len(attacks))
		for _, a := range attacks {
			fmt.Printf("   - [%s] %s\n", a.Label, a.Input)
		}
	}

	// Test 3: full text search
	fmt.Println("\n🔍 Test 3: Search attacks by text")

	found, err := esClient.SearchAttacksByText(ctx, "SQLi", 0, 10)
	if err != nil {
		log.Printf("Failed to search attacks: %v", err)
	} else {
		fmt.Printf("✅ Found %d attacks matching 'SQLi'\n", len(found))
	}

	// Test 4: aggregate the last hour
	fmt.Println("\n🔍 Test 4: Get stats")

	stats, err := esClient.GetStats(ctx, time.Now().Add(-time.Hour), time.Now())
	if err != nil {
		log.Printf("Failed to get stats: %v", err)
	} else {
		fmt.Printf("✅ Total: %d, attacks: %d, normal: %d, attack rate: %.2f%%\n",
			stats.Total, stats.Attacks, stats.Normal, stats.AttackRate*100)
		for _, b := range stats.ByLabel {
			fmt.Printf("   - %s: %d\n", b.Key, b.DocCount)
		}
	}

	fmt.Println("\n🎉 Smoke test finished")
}
