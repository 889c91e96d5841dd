package detectors

import (
	"testing"
)

func TestRegistry_DefaultHoldsBuiltins(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default registry: %v", err)
	}
	names := r.List()
	if len(names) != 2 || names[0] != "layering" || names[1] != "wash_trading" {
		t.Errorf("Expected [layering wash_trading]. Got: %v", names)
	}
}

func TestRegistry_RejectsDuplicateNames(t *testing.T) {
	r, err := Default()
	if err != nil {
		t.Fatalf("Failed to build default registry: %v", err)
	}
	err = r.Register(func() (Detector, error) {
		return NewLayeringDetector(DefaultLayeringConfig())
	})
	if err == nil {
		t.Errorf("Expected duplicate registration to fail")
	}
}

func TestRegistry_RejectsNilFactory(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Errorf("Expected nil factory to be rejected")
	}
}

func TestRegistry_UnknownNameFails(t *testing.T) {
	r, _ := Default()
	if _, err := r.Get("momentum_ignition"); err == nil {
		t.Errorf("Expected unknown algorithm lookup to fail")
	}
}

func TestRegistry_GetReturnsFreshInstances(t *testing.T) {
	r, _ := Default()
	a, err := r.Get("layering")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	b, _ := r.Get("layering")
	if a == b {
		t.Errorf("Expected each Get to return a fresh detector instance")
	}
}

func TestRegistry_GetAllSelection(t *testing.T) {
	r, _ := Default()

	all, err := r.GetAll(nil)
	if err != nil || len(all) != 2 {
		t.Errorf("Expected nil selection to return every detector. Got %d, err=%v", len(all), err)
	}

	none, err := r.GetAll([]string{})
	if err != nil || len(none) != 0 {
		t.Errorf("Expected empty selection to return no detectors. Got %d, err=%v", len(none), err)
	}

	one, err := r.GetAll([]string{"wash_trading"})
	if err != nil || len(one) != 1 || one[0].Name() != "wash_trading" {
		t.Errorf("Expected exactly the wash trading detector. Got %v, err=%v", one, err)
	}

	if _, err := r.GetAll([]string{"layering", "quote_stuffing"}); err == nil {
		t.Errorf("Expected an unknown name to fail the whole selection")
	}
}
