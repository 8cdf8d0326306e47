// Package metabolic estimates adaptive energy expenditure from weight and
// food logs and turns it into weekly calorie coaching.
package metabolic

// Version is the release of the coach binary and library.
const Version = "0.3.0"
