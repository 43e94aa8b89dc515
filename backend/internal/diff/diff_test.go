package diff

import "testing"

func TestDiff_InsertMiddle(t *testing.T) {
	d := NewDiffer()
	spans := d.Diff("Hello world", "Hello collaborative world")

	var inserted string
	for _, s := range spans {
		if s.Op == OpInsert {
			inserted += s.Text
		}
	}
	if inserted != "collaborative " {
		t.Fatalf("inserted text = %q, want %q", inserted, "collaborative ")
	}
}

func TestDiff_Identical(t *testing.T) {
	d := NewDiffer()
	spans := d.Diff("same", "same")
	for _, s := range spans {
		if s.Op != OpEqual {
			t.Fatalf("Diff() of identical text contains op %q", s.Op)
		}
	}
}

func TestDiff_Reconstructs(t *testing.T) {
	d := NewDiffer()
	oldText, newText := "The quick brown fox", "The slow brown cat"
	spans := d.Diff(oldText, newText)

	var rebuiltOld, rebuiltNew string
	for _, s := range spans {
		if s.Op != OpInsert {
			rebuiltOld += s.Text
		}
		if s.Op != OpDelete {
			rebuiltNew += s.Text
		}
	}
	if rebuiltOld != oldText {
		t.Fatalf("old side rebuilt = %q, want %q", rebuiltOld, oldText)
	}
	if rebuiltNew != newText {
		t.Fatalf("new side rebuilt = %q, want %q", rebuiltNew, newText)
	}
}
