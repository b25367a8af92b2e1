// Package eom runs the Eye-Opening-Monitor measurement protocol.
//
// A measurement is a fixed sequence of phases on one link:
//
//	Validate  link, lane range and mode are checked; nothing is written
//	Configure the encoded settings are programmed through firmware or the
//	          configuration register and done reporting is disabled
//	Arm       done must read as cleared
//	Enable    override and enable are set; done must assert
//	Disable   enable and override are cleared
//	Collect   one status byte is read per requested lane
//
// The control, status and lane select registers are shared by all lanes of
// a link, so the whole sequence runs under the device lock. If any phase
// after Validate fails, enable and override are cleared before the error
// is returned.
package eom
