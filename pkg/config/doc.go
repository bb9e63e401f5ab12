// Package config provides settings loading and work type catalog parsing
// for workcatalog.
//
// # Settings
//
// Settings come from three layers, in increasing precedence:
//
//   - built-in defaults (DefaultSettings)
//   - an optional YAML settings file
//   - WORKCATALOG_ environment variables, optionally loaded from a .env file
//
// Environment keys use a double underscore between section and key:
//
//	WORKCATALOG_DATABASE__PATH=/var/lib/workcatalog/catalog.db
//	WORKCATALOG_LOGGING__LEVEL=debug
//	WORKCATALOG_TRACING__SAMPLING_RATE=0.25
//
// # Catalog files
//
// A catalog file lists work types under a top-level workTypes field. CUE,
// JSON and YAML are accepted; the format is chosen by file extension.
//
//	workTypes: [
//		{name: "Welder", basePay: 20.0, bonusPercent: 5.0},
//		{name: "Painter", basePay: 15.5, bonusPercent: 2.0},
//	]
//
// Every file is unified with the built-in #Catalog CUE schema, so unknown
// fields, wrong types and negative amounts are reported with their file
// position. Decoded rows are then checked with struct validation rules.
// A name that appears more than once is reported as a warning; the later
// entry wins when the catalog is written to the store.
//
// # Usage Example
//
//	parser, err := config.NewCatalogParser()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	catalog, err := parser.Parse(ctx, []string{"catalog.cue"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := catalog.Err(); err != nil {
//	    log.Fatal(err)
//	}
//
//	err = store.InsertBatch(ctx, catalog.WorkTypes)
//
// # Watching
//
// CatalogWatcher reparses the sources after they change and passes every
// result, valid or not, to a callback on the watching goroutine:
//
//	watcher := config.NewCatalogWatcher(parser, logger, 0)
//	err := watcher.Watch(ctx, []string{"./catalogs"}, func(ctx context.Context, c *config.Catalog) error {
//	    if c.HasErrors() {
//	        return nil
//	    }
//	    return store.ReplaceAll(ctx, c.WorkTypes)
//	})
package config
