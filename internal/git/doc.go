// Package git resolves branch and tag references of the iced repository to the
// commit they currently point at, so a build can pin an exact revision.
//
// Resolution only lists the remote's advertised references; nothing is cloned.
package git
