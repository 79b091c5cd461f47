// Package config holds the two configuration surfaces of mdbook-iced: the
// per-book [preprocessor.iced] table (Git reference of the iced dependency and
// embed options) and the optional tool settings file (toolchain binaries,
// eligibility markers, metrics and ledger locations).
package config
