package main

import (
	"fmt"
	"time"

	"github.com/jgoulah/poemcast/internal/publisher"
	"github.com/jgoulah/poemcast/internal/runner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	publishDestination string
	publishLimit       int
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Re-send poems whose delivery is pending or failed",
	Long: `Reads deliveries that never succeeded from the history database and posts
those poems again to the destinations that missed them.

Only destinations that are currently configured are retried.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishDestination, "destination", "", "Destination to re-send (slack, bluesky, mqtt or telegram, default: all)")
	publishCmd.Flags().IntVar(&publishLimit, "limit", 0, "Limit number of poems to re-send (0 = no limit)")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer log.Sync()

	db, err := requireDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	pubs, err := publisher.FromConfig(cfg, log.Named("publisher"))
	if err != nil {
		return err
	}
	defer publisher.Close(pubs)

	byName := make(map[string]publisher.Publisher, len(pubs))
	for _, p := range pubs {
		byName[p.Name()] = p
	}
	if publishDestination != "" && byName[publishDestination] == nil {
		return fmt.Errorf("destination %s is not configured", publishDestination)
	}

	deliveries, err := db.ListPendingDeliveries(publishDestination)
	if err != nil {
		return fmt.Errorf("listing deliveries: %w", err)
	}
	if len(deliveries) == 0 {
		fmt.Println("No unpublished deliveries found")
		return nil
	}

	// Group by poem, keeping the oldest-first order
	var poemIDs []int
	missing := map[int][]publisher.Publisher{}
	for _, d := range deliveries {
		p := byName[d.Destination]
		if p == nil {
			log.Warn("skipping delivery to unconfigured destination", zap.Int("poem_id", d.PoemID), zap.String("destination", d.Destination))
			continue
		}
		if _, ok := missing[d.PoemID]; !ok {
			poemIDs = append(poemIDs, d.PoemID)
		}
		missing[d.PoemID] = append(missing[d.PoemID], p)
	}

	if publishLimit > 0 && len(poemIDs) > publishLimit {
		poemIDs = poemIDs[:publishLimit]
		fmt.Printf("Limiting to %d poems (--limit flag)\n", publishLimit)
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	r := runner.New(nil, nil, runner.WithStore(db), runner.WithLogger(log.Named("runner")))
	published, failed := 0, 0
	for i, id := range poemIDs {
		poem, err := db.GetPoem(id)
		if err != nil {
			return err
		}
		if poem == nil {
			continue
		}

		fmt.Printf("[%d/%d] Publishing poem #%d...\n", i+1, len(poemIDs), poem.ID)
		results, _ := r.Republish(ctx, *poem, missing[id])
		printResults(results)
		for _, res := range results {
			if res.Err != nil {
				failed++
			} else {
				published++
			}
		}
	}

	fmt.Printf("\nTotal deliveries published: %d", published)
	if failed > 0 {
		fmt.Printf(", failed: %d\n", failed)
		return fmt.Errorf("%d deliveries failed", failed)
	}
	fmt.Println()
	return nil
}
