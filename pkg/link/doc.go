// Package link materializes an optimized dependency tree on disk.
//
// For a node installed at dir, every child is extracted into
// dir/store/<name> and linked recursively, so each package sees its own
// dependencies in a nested store. Executables declared in a child's "bin"
// field become relative symlinks in the shared dir/store/.bin directory,
// and its preinstall, install and postinstall scripts then run in that
// order with the child directory as working directory and the child's own
// store/.bin in front of PATH.
//
// Siblings are linked concurrently and write to disjoint directories. A
// failure in any branch fails the whole call; all branch errors are
// joined. Nothing is rolled back.
package link
