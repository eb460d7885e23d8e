// Package journal persists the event history of the Integra bridge.
//
// Every alarm, trouble, arm change, command outcome and connection
// change observed by the bridge is recorded as an Event in SQLite so
// operators can reconstruct what happened after the fact, independent
// of the MQTT bus.
//
// The package exposes a Repository interface so the bridge can be
// tested against an in-memory database, and a SQLiteRepository backed
// by the shared database package.
//
// Usage:
//
//	repo := journal.NewSQLiteRepository(db.DB)
//	err := repo.Record(ctx, &journal.Event{
//	    Category: journal.CategoryAlarm,
//	    Kind:     "zones_alarm",
//	    Numbers:  []int{7},
//	})
package journal
