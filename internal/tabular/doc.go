// Package tabular converts between pgdal.Table and CSV and decides the
// PostgreSQL column types used when a table is created from one.
//
// CSV cells are typed per column on read: a column whose non-empty cells all
// parse as integers becomes int64, and likewise for float64, bool and
// time.Time. Anything else stays string. Empty cells become nil (NULL).
package tabular
