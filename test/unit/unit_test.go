//go:build !integration

// Package unit holds cross-package smoke tests that don't require a real
// subprocess or network listener, as a quick sanity check distinct from
// the table-driven tests living alongside each package.
package unit

import (
	"testing"

	"github.com/ehrlich-b/acceptord"
	"github.com/ehrlich-b/acceptord/internal/iface"
)

func TestMockBusinessSatisfiesBusinessInterface(t *testing.T) {
	var _ iface.Business = acceptord.NewMockBusiness()
}

func TestMockObserverSatisfiesObserverInterface(t *testing.T) {
	var _ iface.Observer = &acceptord.MockObserver{}
}

func TestErrorCodesAreDistinct(t *testing.T) {
	codes := []acceptord.ErrorCode{
		acceptord.ErrCodeNotImplemented,
		acceptord.ErrCodeBusy,
		acceptord.ErrCodeInvalidParams,
		acceptord.ErrCodeNotSupported,
		acceptord.ErrCodePermission,
		acceptord.ErrCodeResourceLimit,
		acceptord.ErrCodeIO,
		acceptord.ErrCodeTimeout,
		acceptord.ErrCodeClosed,
	}
	seen := make(map[acceptord.ErrorCode]bool, len(codes))
	for _, c := range codes {
		if seen[c] {
			t.Errorf("duplicate error code %q", c)
		}
		seen[c] = true
	}
}

func TestInitRejectsEmptyBusinessName(t *testing.T) {
	_, err := acceptord.Init("", acceptord.Params{}, nil)
	if err == nil {
		t.Fatal("expected error for empty business name")
	}
	if !acceptord.IsCode(err, acceptord.ErrCodeInvalidParams) {
		t.Errorf("expected ErrCodeInvalidParams, got %v", err)
	}
}
