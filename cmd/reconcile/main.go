package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"storefront-be/internal/config"
	"storefront-be/internal/db"
	"storefront-be/internal/logger"
	"storefront-be/internal/order"
	"storefront-be/internal/reconcile"
)

func main() {
	orderID := flag.Uint("order", 0, "order id to reconcile")
	dryRun := flag.Bool("dry-run", false, "report intended stock changes without writing")
	force := flag.Bool("force", false, "re-apply restoration even if already marked restored")
	scan := flag.Bool("scan", false, "list orders with suspected unrestored stock instead of reconciling")
	limit := flag.Int("limit", 50, "max orders to report in scan mode")
	flag.Parse()

	cfg := config.LoadConfig()
	logger.Init(cfg.AppEnv)
	defer logger.Sync()

	database := db.InitDB(cfg)
	defer database.Close()

	svc := reconcile.NewService(database, order.NewRepository(database))
	ctx := context.Background()

	if *scan {
		orders, err := svc.FindDiscrepancies(ctx, int32(*limit))
		if err != nil {
			log.Fatalf("scan failed: %v", err)
		}
		if len(orders) == 0 {
			fmt.Println("no suspect orders found")
			return
		}
		for _, o := range orders {
			fmt.Printf("order %d  status=%s  created=%s  items=%d\n",
				o.ID, o.Status, o.CreatedAt.Format("2006-01-02 15:04"), len(o.Items))
		}
		return
	}

	if *orderID == 0 {
		fmt.Fprintln(os.Stderr, "either -order or -scan is required")
		flag.Usage()
		os.Exit(2)
	}

	result, err := svc.Reconcile(ctx, *orderID, *dryRun, *force)
	if err != nil {
		log.Fatalf("reconcile failed: %v", err)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
}
