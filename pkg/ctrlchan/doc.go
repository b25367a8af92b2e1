// Package ctrlchan defines the synchronous request/response channel to the
// link firmware (resource manager).
//
// The channel is used for topology discovery, error counter retrieval and
// clearing, and EOM setup on generations that route EOM configuration
// through firmware. The wire format is owned by the implementation.
//
// Implementations return ErrBusy when the firmware counter reservation
// resource is transiently held by another client. Callers may retry that
// condition a bounded number of times; every other error is final.
package ctrlchan
