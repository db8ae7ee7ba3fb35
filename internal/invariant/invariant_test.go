package invariant

import (
	"testing"
)

func TestRaiseIncrementsCounter(t *testing.T) {
	before, err := Count("test_check_counter")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}

	func() {
		defer func() { recover() }()
		Raise(nil, "test_check_counter", "id", "deadbeef")
	}()

	after, err := Count("test_check_counter")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if after != before+1 {
		t.Fatalf("Count after Raise = %v, want %v", after, before+1)
	}
}

func TestRaisePanicsInTestMode(t *testing.T) {
	TestMode.Store(true)
	t.Cleanup(func() { TestMode.Store(false) })

	defer func() {
		if recover() == nil {
			t.Fatal("expected Raise to panic in test mode")
		}
	}()
	Raise(nil, "test_check_panic")
}
