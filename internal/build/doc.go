// Package build runs the preprocessor over a set of pages.
//
// A run sets up the build environment, transforms every page, garbage
// collects the compilation cache, releases the live artifacts next to the
// book sources and records the outcome in metrics and the ledger. Both the
// mdBook protocol command and the standalone build and watch commands route
// through Service.
package build
