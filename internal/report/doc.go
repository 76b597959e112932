// Package report persists the artifacts of one analysis run: the
// per-date summary CSV, the Excel workbook, and the PNG figures.
//
// Writers take a fully assembled Report value and never mutate it, so a
// run can emit any subset of artifacts. All writers create parent
// directories as needed and wrap failures with context.
package report
