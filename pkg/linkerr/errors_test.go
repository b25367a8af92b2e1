package linkerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linkval/nvldiag/pkg/regport"
)

func TestErrorIsKind(t *testing.T) {
	err := TimedOut("GetEomStatus", 2, "EOM done", 5)

	assert.ErrorIs(t, err, Timeout)
	assert.NotErrorIs(t, err, InvalidArgument)
	assert.Equal(t, Timeout, KindOf(err))

	wrapped := fmt.Errorf("sweep: %w", err)
	assert.ErrorIs(t, wrapped, Timeout)
	assert.Equal(t, Timeout, KindOf(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := Invalid("SetIobistTime", 4, "1s", "link is not AC-coupled")
	assert.Equal(t, "SetIobistTime: INVALID_ARGUMENT link 4: link is not AC-coupled (value 1s)", err.Error())

	err = New(Unsupported, "StartPowerStateToggle", "no toggle capability")
	assert.Equal(t, "StartPowerStateToggle: UNSUPPORTED: no toggle capability", err.Error())
}

func TestTransportPreservesCause(t *testing.T) {
	cause := errors.New("mailbox timeout")
	err := Transport("GetErrorCounts", cause)

	assert.ErrorIs(t, err, TransportFailure)
	assert.ErrorIs(t, err, cause)

	// Already classified errors are not re-wrapped.
	inner := NotSupported("x", 0, "nope")
	assert.Same(t, inner, Transport("y", inner).(*Error))
	assert.NoError(t, Transport("z", nil))
}

func TestRegisterErrorIsHardwareFault(t *testing.T) {
	err := Register("ReadStatus", 1, errors.New("bus error"))
	assert.ErrorIs(t, err, HardwareFault)

	priv := Privilege("Write", 1, "CTRL")
	assert.Same(t, priv, Register("Write", 1, priv).(*Error))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "UNKNOWN", Kind(0).String())
}

func TestRegisterLockedIsPrivilegeViolation(t *testing.T) {
	err := Register("Write", 2, fmt.Errorf("CTRL@link2: %w", regport.ErrWriteLocked))
	assert.ErrorIs(t, err, PrivilegeViolation)
	assert.ErrorIs(t, err, regport.ErrWriteLocked)
}

func TestNoLinkID(t *testing.T) {
	err := Privilege("GetErrorFlags", NoLinkID, "TOP_STATUS")
	assert.Equal(t, NoLink, err.Link)
	assert.NotContains(t, err.Error(), "link ")
}
