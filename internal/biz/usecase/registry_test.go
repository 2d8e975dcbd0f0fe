package usecase

import (
	"testing"

	"github.com/user/groupwatch/internal/biz/domain"
)

func infos(ids ...string) []domain.GroupInfo {
	out := make([]domain.GroupInfo, len(ids))
	for i, id := range ids {
		out[i] = domain.GroupInfo{ID: id, Name: "Group " + id}
	}
	return out
}

func TestReconcileDetectsNewGroups(t *testing.T) {
	r := NewGroupRegistry()
	r.Replace(infos("a", "b"))

	newCount, changed := r.Reconcile(infos("a", "b", "c", "d"))
	if !changed || newCount != 2 {
		t.Fatalf("Reconcile = (%d, %v), want (2, true)", newCount, changed)
	}

	// The whole snapshot is replaced, never a partial diff.
	if got := len(r.Snapshot()); got != 4 {
		t.Errorf("snapshot size = %d, want 4", got)
	}
}

func TestReconcileIgnoresMetadataChanges(t *testing.T) {
	r := NewGroupRegistry()
	r.Replace([]domain.GroupInfo{{ID: "a", Name: "Old Name", Participants: 5}})

	newCount, changed := r.Reconcile([]domain.GroupInfo{{ID: "a", Name: "New Name", Participants: 50}})
	if changed || newCount != 0 {
		t.Fatalf("Reconcile = (%d, %v), want (0, false) for metadata-only change", newCount, changed)
	}
}

func TestReconcileDisappearedGroupsAlone(t *testing.T) {
	r := NewGroupRegistry()
	r.Replace(infos("a", "b"))

	// Diff is by new-id membership only; a shrunk list is not "changed".
	if _, changed := r.Reconcile(infos("a")); changed {
		t.Error("disappearance alone must not trigger a replace")
	}
	if got := len(r.Snapshot()); got != 2 {
		t.Errorf("snapshot size = %d, want 2", got)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	r := NewGroupRegistry()
	r.Replace(infos("a"))

	snap := r.Snapshot()
	snap[0].Name = "mutated"

	if r.Snapshot()[0].Name == "mutated" {
		t.Error("Snapshot leaked internal state")
	}
}

func TestSearch(t *testing.T) {
	r := NewGroupRegistry()
	r.Replace([]domain.GroupInfo{
		{ID: "123@g.us", Name: "London Drivers"},
		{ID: "456@g.us", Name: "Madrid Riders"},
	})

	if got := r.Search("driver"); len(got) != 1 || got[0].ID != "123@g.us" {
		t.Errorf("Search(driver) = %v", got)
	}
	if got := r.Search("456"); len(got) != 1 || got[0].Name != "Madrid Riders" {
		t.Errorf("Search(456) = %v", got)
	}
	if got := r.Search(""); len(got) != 2 {
		t.Errorf("Search(empty) = %d results, want 2", len(got))
	}
	if got := r.Search("nothing"); len(got) != 0 {
		t.Errorf("Search(nothing) = %v", got)
	}
}
