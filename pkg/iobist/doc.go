// Package iobist configures the loopback self-test and reads back its
// failure conditions.
//
// Every setter takes a link mask and validates all links of the mask
// before the first register write, so a rejected request leaves the
// hardware untouched.
package iobist
