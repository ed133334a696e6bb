package process

import "testing"

func TestRegisterEntryStoresFunc(t *testing.T) {
	called := false
	RegisterEntry("test-entry", func(ep *Endpoint) error {
		called = true
		return nil
	})

	registryMu.Lock()
	fn, ok := registry["test-entry"]
	registryMu.Unlock()
	if !ok {
		t.Fatal("entry not registered")
	}
	if err := fn(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("registered func was not the one invoked")
	}
}
