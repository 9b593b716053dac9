// Package lifecycle dispatches `loom cleanup` requests.
//
// ParseMode turns the command-line flags into one of four modes:
//
//	list    show every workspace, main flagged
//	single  resolve one identifier and tear its loom down
//	issue   tear down every loom whose name or branch carries the id
//	all     tear down every loom except the main workspace
//
// Batch modes ask for a single confirmation, then run the teardown engine
// once per loom with per-loom prompts suppressed. A failed loom does not
// stop the batch; failures are counted in the Summary and reported as one
// TeardownFailed error.
package lifecycle
