// Package ledger records preprocessing runs in a SQLite database so past runs
// can be listed with the history command.
//
// Each run appends a RunStarted event and then either RunCompleted or
// RunFailed, all keyed by the run id. History folds those events back into
// one summary per run.
package ledger
