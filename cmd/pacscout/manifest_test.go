package main

import (
	"errors"
	"testing"

	"github.com/pacscout/pacscout/internal/errdefs"
	"github.com/pacscout/pacscout/internal/manifest"
)

func inventoryFixture() []manifest.InstalledPackage {
	return []manifest.InstalledPackage{
		{Name: "bash", Version: "5.2-1", Repository: "core"},
		{Name: "paru", Version: "2.0.4-1", Repository: "local"},
		{Name: "zlib", Version: "1.3-1", Repository: "core"},
	}
}

func TestRestrictToNamesKeepsSubset(t *testing.T) {
	subset, err := restrictToNames(inventoryFixture(), []string{"zlib", "bash"})
	if err != nil {
		t.Fatalf("restrictToNames: %v", err)
	}
	if len(subset) != 2 {
		t.Fatalf("subset = %+v", subset)
	}
	// Inventory order is preserved, not argument order.
	if subset[0].Name != "bash" || subset[1].Name != "zlib" {
		t.Errorf("subset order = [%s %s]", subset[0].Name, subset[1].Name)
	}
}

func TestRestrictToNamesNoFilter(t *testing.T) {
	subset, err := restrictToNames(inventoryFixture(), nil)
	if err != nil {
		t.Fatalf("restrictToNames: %v", err)
	}
	if len(subset) != 3 {
		t.Errorf("no names must keep everything, got %d", len(subset))
	}
}

func TestRestrictToNamesToleratesUnknown(t *testing.T) {
	subset, err := restrictToNames(inventoryFixture(), []string{"bash", "ghost"})
	if err != nil {
		t.Fatalf("one resolvable name is enough: %v", err)
	}
	if len(subset) != 1 || subset[0].Name != "bash" {
		t.Errorf("subset = %+v", subset)
	}
}

func TestRestrictToNamesAllUnknown(t *testing.T) {
	_, err := restrictToNames(inventoryFixture(), []string{"ghost", "phantom"})
	if !errors.Is(err, errdefs.ErrRuntime) {
		t.Fatalf("error = %v, want runtime error", err)
	}
}
