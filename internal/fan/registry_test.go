package fan

import (
	"errors"
	"testing"
)

func registryEntity(t *testing.T, id string) *Entity {
	t.Helper()

	entity, err := New(
		Config{ID: id, Name: id},
		Deps{Profile: basicProfile(), Controller: &fakeController{}},
	)
	if err != nil {
		t.Fatalf("New(%q) error = %v", id, err)
	}
	return entity
}

func TestRegistryAddGet(t *testing.T) {
	reg := NewRegistry()
	entity := registryEntity(t, "bedroom_fan")

	if err := reg.Add(entity); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	got, err := reg.Get("bedroom_fan")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != entity {
		t.Error("Get() returned a different entity")
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

func TestRegistryAddNil(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Add(nil); err == nil {
		t.Error("Add(nil) = nil error, want error")
	}
}

func TestRegistryAddDuplicate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Add(registryEntity(t, "bedroom_fan")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	err := reg.Add(registryEntity(t, "bedroom_fan"))
	if !errors.Is(err, ErrDuplicateFan) {
		t.Errorf("Add() error = %v, want ErrDuplicateFan", err)
	}
	if reg.Count() != 1 {
		t.Errorf("Count() = %d, want 1", reg.Count())
	}
}

func TestRegistryGetMissing(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("ghost")
	if !errors.Is(err, ErrFanNotFound) {
		t.Errorf("Get() error = %v, want ErrFanNotFound", err)
	}
}

func TestRegistryListOrder(t *testing.T) {
	reg := NewRegistry()
	ids := []string{"living_room", "bedroom", "attic"}

	for _, id := range ids {
		if err := reg.Add(registryEntity(t, id)); err != nil {
			t.Fatalf("Add(%q) error = %v", id, err)
		}
	}

	list := reg.List()
	if len(list) != len(ids) {
		t.Fatalf("List() length = %d, want %d", len(list), len(ids))
	}
	for i, entity := range list {
		if entity.ID() != ids[i] {
			t.Errorf("List()[%d] = %q, want %q (registration order)", i, entity.ID(), ids[i])
		}
	}

	got := reg.IDs()
	for i, id := range got {
		if id != ids[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, id, ids[i])
		}
	}

	// The returned slice is a copy; mutating it must not corrupt the registry.
	got[0] = "mutated"
	if again := reg.IDs(); again[0] != "living_room" {
		t.Errorf("IDs()[0] = %q after external mutation, want %q", again[0], "living_room")
	}
}
