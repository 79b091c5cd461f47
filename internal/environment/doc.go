// Package environment describes the build environment every code block is
// compiled in: the Git reference of the iced dependency, the workspace paths
// under <root>/target/icebergs, and a hash of the rendered Cargo manifest.
//
// Two books built against the same manifest share compiled artifacts; any
// manifest change yields a new hash and therefore new artifact handles.
package environment
