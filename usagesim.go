// Package usagesim fabricates, cleans and summarizes product telemetry for a
// collaborative design tool.
//
// Pipeline:
//
//	generator  users, sessions and raw events from seeded random draws
//	clean      dedupe, timestamp sanity, vocabulary filter, re-sort
//	metrics    DAU, feature users, sessions per user-day, events per session
//	chart      DAU trend line as PNG
//
// Every metric table is a declarative engine.QuerySpec:
//
//	view := metrics.EventsView(events)
//	result, err := engine.Execute(spec, view, engine.WithLogger(log))
//
// The same seed always yields byte-identical tables. The usagesim command
// in cmd/usagesim runs the stages from the shell.
package usagesim
