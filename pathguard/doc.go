// Package pathguard canonicalizes and validates filesystem paths against a
// small set of trusted root directories.
//
// Archive contents and user-supplied locations are untrusted; every path the
// key pipeline reads or writes must canonicalize to a descendant of an
// allowed root, otherwise resolution fails closed with
// interfaces.ErrPathOutsideRoots. The default root set covers the current
// working directory, the user home directory, the system temp directory, the
// directory holding the running executable, and the detected repository root.
//
// A Guard carries its root set as explicit state so embedders and tests can
// construct one with their own roots instead of relying on process-wide
// defaults.
package pathguard
