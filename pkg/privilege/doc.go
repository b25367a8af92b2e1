// Package privilege issues and verifies out-of-band unlock credentials for
// registers locked by a higher privilege level.
//
// A credential binds a device ID, a privilege level and an expiry time
// with an HMAC keyed by a per-device key. Per-device keys are derived from
// a lab secret with HKDF, so a credential issued for one device never
// unlocks another.
package privilege
