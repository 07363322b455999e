// Package registry fetches package archives and version metadata.
//
// A [Client] understands three kinds of location:
//
//   - filesystem paths starting with "/", "./" or "../", read from disk
//   - absolute URLs (http, https, file), downloaded as-is
//   - exact versions, translated by [Client.Location] into the registry's
//     tarball URL (<registry>/<name>/-/<basename>-<version>.tgz)
//
// Version lists come from the registry's package document and are fetched
// at most once per name for the lifetime of a Client; concurrent callers
// asking for the same name share a single request.
//
// Failures are reported as FETCH_ERROR. A 404 from the registry carries
// PACKAGE_NOT_FOUND in the same error tree, so callers can tell a missing
// package from a flaky network with [errors.Is].
package registry
