package errors

import "testing"

func TestSentinelErrors(t *testing.T) {
	if ErrUnauthorized == nil {
		t.Error("ErrUnauthorized should not be nil")
	}
	if ErrKeyNotFound == nil {
		t.Error("ErrKeyNotFound should not be nil")
	}
	if ErrDuplicateEvent == nil {
		t.Error("ErrDuplicateEvent should not be nil")
	}
}
