package tableref

import (
	"testing"
)

func TestNamespace_RoundTrip(t *testing.T) {
	cases := []struct {
		kind Kind
		id   int
		want int
	}{
		{KindSource, 0, 0},
		{KindSource, 5, 5},
		{KindSource, 9999, 9999},
		{KindTransform, 3, 10003},
		{KindTransform, 0, 10000},
		{KindJoin, 3, 20003},
		{KindQualitative, 9, 30009},
		{KindQualitative, 9999, 39999},
	}

	for _, tc := range cases {
		ref := Ref{Kind: tc.kind, ID: tc.id}
		n, err := ref.Namespace()
		if err != nil {
			t.Fatalf("Namespace(%v): %v", ref, err)
		}
		if n != tc.want {
			t.Errorf("Namespace(%v) = %d, want %d", ref, n, tc.want)
		}

		back, err := FromNamespace(n)
		if err != nil {
			t.Fatalf("FromNamespace(%d): %v", n, err)
		}
		if back != ref {
			t.Errorf("FromNamespace(%d) = %v, want %v", n, back, ref)
		}
	}
}

func TestNamespace_OutOfBand(t *testing.T) {
	for _, kind := range []Kind{KindSource, KindTransform, KindJoin, KindQualitative} {
		ref := Ref{Kind: kind, ID: BandWidth}
		if _, err := ref.Namespace(); err == nil {
			t.Errorf("Namespace(%v) should fail for out-of-band id", ref)
		}
	}

	ref := Ref{Kind: KindSource, ID: -1}
	if _, err := ref.Namespace(); err == nil {
		t.Error("Namespace should reject negative ids")
	}
}

func TestFromNamespace_Invalid(t *testing.T) {
	if _, err := FromNamespace(-1); err == nil {
		t.Error("expected error for negative namespace id")
	}
	if _, err := FromNamespace(4 * BandWidth); err == nil {
		t.Error("expected error beyond highest band")
	}
}

func TestNodeID_RoundTrip(t *testing.T) {
	cases := []struct {
		ref  Ref
		want string
	}{
		{Ref{KindSource, 42}, "sheet-42"},
		{Ref{KindTransform, 7}, "step-7"},
		{Ref{KindJoin, 3}, "join-3"},
		{Ref{KindQualitative, 9}, "qualitative-9"},
	}

	for _, tc := range cases {
		got := tc.ref.NodeID()
		if got != tc.want {
			t.Errorf("NodeID(%v) = %q, want %q", tc.ref, got, tc.want)
		}

		back, err := ParseNodeID(got)
		if err != nil {
			t.Fatalf("ParseNodeID(%q): %v", got, err)
		}
		if back != tc.ref {
			t.Errorf("ParseNodeID(%q) = %v, want %v", got, back, tc.ref)
		}
	}
}

func TestParseNodeID_Malformed(t *testing.T) {
	for _, id := range []string{"", "sheet", "sheet-", "-42", "widget-3", "sheet-x", "sheet--1"} {
		if _, err := ParseNodeID(id); err == nil {
			t.Errorf("ParseNodeID(%q) should fail", id)
		}
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("spreadsheet", 1); err == nil {
		t.Error("expected error for unknown kind")
	}
	if _, err := New(KindJoin, -2); err == nil {
		t.Error("expected error for negative id")
	}
	ref, err := New(KindJoin, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if ref.Kind != KindJoin || ref.ID != 2 {
		t.Errorf("unexpected ref: %v", ref)
	}
}
