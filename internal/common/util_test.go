package common

import (
	"errors"
	"testing"
)

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestErrTokenExpired_MatchesWireMessage(t *testing.T) {
	if ErrTokenExpired.Error() != TokenExpiredMessage {
		t.Fatalf("unexpected message %q", ErrTokenExpired.Error())
	}
	if errors.Is(ErrTokenExpired, ErrSessionExpired) {
		t.Fatalf("token expiry and session expiry must stay distinct")
	}
}
