package privilege

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/hkdf"

	"github.com/linkval/nvldiag/pkg/regport"
)

// KeySize is the size of a derived per-device key in bytes.
const KeySize = 32

// Credential errors.
var (
	ErrEmptySecret   = errors.New("empty lab secret")
	ErrWrongDevice   = errors.New("credential issued for another device")
	ErrExpired       = errors.New("credential expired")
	ErrBadSignature  = errors.New("credential signature mismatch")
	ErrInvalidLevel  = errors.New("invalid privilege level")
	ErrMalformed     = errors.New("malformed credential")
	ErrNotUnlockable = errors.New("register port has no privilege control")
)

// Credential grants a privilege level on one device until Expires.
type Credential struct {
	DeviceID string
	Level    regport.PrivLevel
	Expires  time.Time
	MAC      []byte
}

// DeriveKey derives the unlock key of a device from the lab secret.
func DeriveKey(secret []byte, deviceID string) ([]byte, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	r := hkdf.New(sha256.New, secret, []byte(deviceID), []byte("nvldiag register unlock"))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive unlock key: %w", err)
	}
	return key, nil
}

func sign(key []byte, deviceID string, level regport.PrivLevel, expires time.Time) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(deviceID))
	mac.Write([]byte{0, byte(level)})
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(expires.Unix()))
	mac.Write(ts[:])
	return mac.Sum(nil)
}

// Issue creates a credential for deviceID at level, valid until expires.
func Issue(secret []byte, deviceID string, level regport.PrivLevel, expires time.Time) (Credential, error) {
	if level > regport.PrivLevel3 {
		return Credential{}, ErrInvalidLevel
	}
	key, err := DeriveKey(secret, deviceID)
	if err != nil {
		return Credential{}, err
	}
	expires = expires.Truncate(time.Second)
	return Credential{
		DeviceID: deviceID,
		Level:    level,
		Expires:  expires,
		MAC:      sign(key, deviceID, level, expires),
	}, nil
}

// Verifier checks credentials against the lab secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

// NewVerifier creates a verifier for credentials issued from secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: append([]byte(nil), secret...), now: time.Now}
}

// Verify checks that c was issued for deviceID and has not expired.
func (v *Verifier) Verify(c Credential, deviceID string) error {
	if c.DeviceID != deviceID {
		return ErrWrongDevice
	}
	if c.Level > regport.PrivLevel3 {
		return ErrInvalidLevel
	}
	key, err := DeriveKey(v.secret, deviceID)
	if err != nil {
		return err
	}
	if !hmac.Equal(c.MAC, sign(key, c.DeviceID, c.Level, c.Expires)) {
		return ErrBadSignature
	}
	if !v.now().Before(c.Expires) {
		return ErrExpired
	}
	return nil
}

// Leveler is a register port whose privilege level can be raised.
type Leveler interface {
	SetPrivLevel(level regport.PrivLevel)
}

// Unlock verifies c and raises the privilege level of port.
func (v *Verifier) Unlock(port regport.Port, c Credential, deviceID string) error {
	l, ok := port.(Leveler)
	if !ok {
		return ErrNotUnlockable
	}
	if err := v.Verify(c, deviceID); err != nil {
		return err
	}
	if c.Level > port.PrivLevel() {
		l.SetPrivLevel(c.Level)
	}
	return nil
}

// String encodes the credential as "device:level:expires:mac".
func (c Credential) String() string {
	return fmt.Sprintf("%s:%d:%d:%s", c.DeviceID, c.Level, c.Expires.Unix(), hex.EncodeToString(c.MAC))
}

// ParseCredential decodes a credential produced by String.
func ParseCredential(s string) (Credential, error) {
	// Device IDs may contain colons; the last three fields never do.
	parts := strings.Split(s, ":")
	if len(parts) < 4 {
		return Credential{}, ErrMalformed
	}
	n := len(parts)
	level, err := strconv.ParseUint(parts[n-3], 10, 8)
	if err != nil || level > uint64(regport.PrivLevel3) {
		return Credential{}, fmt.Errorf("%w: level %q", ErrMalformed, parts[n-3])
	}
	expires, err := strconv.ParseInt(parts[n-2], 10, 64)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: expiry %q", ErrMalformed, parts[n-2])
	}
	mac, err := hex.DecodeString(parts[n-1])
	if err != nil {
		return Credential{}, fmt.Errorf("%w: mac: %v", ErrMalformed, err)
	}
	return Credential{
		DeviceID: strings.Join(parts[:n-3], ":"),
		Level:    regport.PrivLevel(level),
		Expires:  time.Unix(expires, 0),
		MAC:      mac,
	}, nil
}
