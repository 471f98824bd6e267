package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sitebooks/backoffice/config"
	"github.com/sitebooks/backoffice/utils"
	"github.com/sitebooks/backoffice/workflow"
)

func main() {
	businessID := flag.String("business-id", "", "Required: business id")
	apply := flag.Bool("apply", false, "Write ledger quantities back to drifted items (default: dry run)")
	flag.Parse()

	if strings.TrimSpace(*businessID) == "" {
		fmt.Fprintln(os.Stderr, "--business-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}

	ctx := utils.SetBusinessIdInContext(context.Background(), *businessID)
	ctx = utils.SetUserNameInContext(ctx, "inventory-rebuild")
	drifts, err := workflow.RebuildInventoryQuantities(ctx, db, config.GetLogger(), *businessID, *apply)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rebuild failed: %v\n", err)
		os.Exit(1)
	}

	for _, d := range drifts {
		fmt.Printf("item=%d name=%q stored=%s ledger=%s\n", d.InventoryItemId, d.Name, d.Stored, d.Ledger)
	}
	if !*apply {
		fmt.Printf("dry run: %d drifted item(s); rerun with --apply to fix\n", len(drifts))
		return
	}
	fmt.Printf("inventory rebuild complete: %d item(s) fixed\n", len(drifts))
}
