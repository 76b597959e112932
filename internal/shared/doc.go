// Package shared holds cross-cutting helpers that belong to no single
// domain package. Today that is only the testutil subpackage, which
// provides the buffered slog handler the package tests use to assert on
// structured log output.
//
// Nothing here may import other internal packages; the dependency arrow
// always points from the domain packages into shared, never back.
package shared
