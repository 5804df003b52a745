// Package formats reads triangle lists and reads/writes compressed strip files.
//
// Inputs: text index lists, GTRI binary triangle lists and RSM models.
// Outputs: STRP strip containers and YAML reports.
package formats
