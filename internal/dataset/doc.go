// Package dataset loads and prepares the two-asset price table the
// analyzer works on. It reads dated price observations from CSV in either
// a wide layout (Date plus one column per ticker) or the long layout the
// paircsv tool produces from daily report files, aligns the two series on
// their common trading dates, and standardizes them for modeling.
//
// The package deliberately keeps loading lenient and alignment strict:
// unparseable rows are skipped with a warning, but a pair that ends up
// with too few aligned observations, duplicate dates, or zero variance is
// an error.
package dataset
