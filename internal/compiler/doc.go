// Package compiler implements the content-addressed compilation cache.
//
// Each code block is identified by an Iceberg: the SHA-256 of its normalized
// source followed by the environment hash. A compiled artifact lives in the
// environment's artifact directory under a subdirectory named after the hash,
// and the existence of that subdirectory is the only cache index. New entries
// are built in a staging directory and renamed into place, so an interrupted
// run never leaves a partial entry behind.
package compiler
