// Package archive decodes package tarballs.
//
// Registry tarballs are gzip-compressed tar streams whose entries all live
// under a single container directory (conventionally "package/"). Both
// operations take a strip count that removes that many leading path
// segments from every entry name before it is matched or written, so a
// strip of 1 addresses "package/package.json" as "package.json".
//
// Input that does not start with the gzip magic bytes is read as a plain
// tar stream. Entries whose names have fewer segments than the strip count
// are skipped, as are entries that would resolve outside the destination
// directory.
//
// Failures are reported as DECODE_ERROR (corrupt or truncated input) and
// MANIFEST_NOT_FOUND (no package.json entry).
package archive
