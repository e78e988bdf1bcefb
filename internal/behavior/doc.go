// Package behavior translates driving styles into the integer bit masks the
// engine expects for lane-change and speed modes.
//
// Translations are total over the declared styles. An undeclared value is a
// programming error and yields ErrUnmappedMode instead of a default mask.
package behavior
