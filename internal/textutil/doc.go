// Package textutil compares short pieces of text by token overlap.
//
// A Fingerprint is a term-frequency vector over lowercase letter and digit
// runs. Single-rune tokens are dropped. Scripts written without spaces
// produce one token per run, so two such lines match only when their runs
// are equal.
package textutil
