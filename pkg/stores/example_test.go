package stores_test

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/workcatalog/workcatalog/pkg/stores"
)

// ExampleNewWorkTypeStore demonstrates creating and opening a store.
func ExampleNewWorkTypeStore() {
	store, err := stores.NewWorkTypeStore(stores.Config{
		Path: ":memory:", // Use in-memory database for example
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := store.Open(ctx); err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	fmt.Println("open:", store.IsOpen())
	// Output: open: true
}

// ExampleWorkTypeStore_Insert demonstrates that inserting an existing name
// replaces its pay values.
func ExampleWorkTypeStore_Insert() {
	store, _ := stores.NewWorkTypeStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Open(ctx)
	defer store.Close()

	_ = store.Insert(ctx, "Welder", 20.0, 5.0)
	_ = store.Insert(ctx, "Welder", 25.0, 10.0)

	workTypes, err := store.ReadAll(ctx)
	if err != nil {
		log.Fatal(err)
	}

	for _, wt := range workTypes {
		fmt.Printf("%s: base %.2f, bonus %.1f%%\n", wt.Name, wt.BasePay, wt.BonusPercent)
	}
	// Output: Welder: base 25.00, bonus 10.0%
}

// ExampleWorkTypeStore_InsertBatch demonstrates writing several work types
// in one transaction.
func ExampleWorkTypeStore_InsertBatch() {
	store, _ := stores.NewWorkTypeStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Open(ctx)
	defer store.Close()

	err := store.InsertBatch(ctx, []stores.WorkType{
		{Name: "Painter", BasePay: 15, BonusPercent: 2},
		{Name: "Mason", BasePay: 18, BonusPercent: 3},
		{Name: "Painter", BasePay: 16, BonusPercent: 2.5},
	})
	if err != nil {
		log.Fatal(err)
	}

	workTypes, _ := store.ReadAll(ctx)
	for _, wt := range workTypes {
		fmt.Printf("%s %.1f %.1f\n", wt.Name, wt.BasePay, wt.BonusPercent)
	}
	// Output:
	// Painter 16.0 2.5
	// Mason 18.0 3.0
}

// ExampleWorkTypeStore_ClearTable demonstrates emptying the catalog.
func ExampleWorkTypeStore_ClearTable() {
	store, _ := stores.NewWorkTypeStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Open(ctx)
	defer store.Close()

	_ = store.InsertBatch(ctx, []stores.WorkType{
		{Name: "A", BasePay: 1, BonusPercent: 1},
		{Name: "B", BasePay: 2, BonusPercent: 2},
	})
	_ = store.ClearTable(ctx)

	workTypes, _ := store.ReadAll(ctx)
	fmt.Println("work types:", len(workTypes))
	// Output: work types: 0
}

// ExampleWorkTypeStore_HealthCheck demonstrates checking a closed store.
func ExampleWorkTypeStore_HealthCheck() {
	store, _ := stores.NewWorkTypeStore(stores.Config{Path: ":memory:"})

	err := store.HealthCheck(context.Background())
	fmt.Println(errors.Is(err, stores.ErrStoreClosed))
	// Output: true
}
