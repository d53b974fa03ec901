package archive

import (
	"testing"
	"time"
)

func TestFilterForHandover(t *testing.T) {
	may1 := day(2024, time.May, 1)
	records := []ArchiveRecord{
		scannedRecord("r1", may1, 1, "GCN mới", "Minh Hưng"),
		scannedRecord("r2", may1, 1, "GCN mới", "Minh Hưng"),
		scannedRecord("r3", may1, 1, "GCN mới", "Minh Hưng"),
		scannedRecord("r4", may1, 2, "GCN mới", "Minh Hưng"),
		scannedRecord("r5", may1, 2, "GCN mới", "Minh Hưng"),
	}

	got := FilterForHandover(records, BatchRef{Date: may1, Index: 1}, "GCN mới", LocalityAll)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, id := range []string{"r1", "r2", "r3"} {
		if got[i].ID != id {
			t.Fatalf("got[%d].ID = %q, want %q (creation order)", i, got[i].ID, id)
		}
	}
}

func TestFilterForHandoverByType(t *testing.T) {
	may1 := day(2024, time.May, 1)
	records := []ArchiveRecord{
		scannedRecord("r1", may1, 1, "GCN mới", ""),
		scannedRecord("r2", may1, 1, "GCN trang 4", ""),
		scannedRecord("r3", may1, 1, "", ""), // unset type counts as the default
	}
	batch := BatchRef{Date: may1, Index: 1}

	got := FilterForHandover(records, batch, "GCN trang 4", "")
	if len(got) != 1 || got[0].ID != "r2" {
		t.Fatalf("type filter = %v, want [r2]", ids(got))
	}

	// Empty requested type means the default, and matches unset fields too.
	got = FilterForHandover(records, batch, "", "")
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r3" {
		t.Fatalf("default type filter = %v, want [r1 r3]", ids(got))
	}
}

func TestFilterForHandoverLocalityDiacriticInsensitive(t *testing.T) {
	may1 := day(2024, time.May, 1)
	records := []ArchiveRecord{
		scannedRecord("r1", may1, 1, "", "Xã Minh Hưng"),
		scannedRecord("r2", may1, 1, "", "Thị trấn Đức Phong"),
		scannedRecord("r3", may1, 1, "", "Xã Minh Lập"),
	}
	batch := BatchRef{Date: may1, Index: 1}

	got := FilterForHandover(records, batch, "", "minh hung")
	if len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("locality %q = %v, want [r1]", "minh hung", ids(got))
	}

	got = FilterForHandover(records, batch, "", "đức phong")
	if len(got) != 1 || got[0].ID != "r2" {
		t.Fatalf("locality %q = %v, want [r2]", "đức phong", ids(got))
	}

	// The ASCII-folded spelling matches as well.
	got = FilterForHandover(records, batch, "", "duc phong")
	if len(got) != 1 || got[0].ID != "r2" {
		t.Fatalf("locality %q = %v, want [r2]", "duc phong", ids(got))
	}

	got = FilterForHandover(records, batch, "", "minh")
	if len(got) != 2 {
		t.Fatalf("locality %q = %v, want [r1 r3]", "minh", ids(got))
	}
}

func TestFilterForHandoverDayExact(t *testing.T) {
	// Membership is calendar-day-exact regardless of clock time.
	records := []ArchiveRecord{
		scannedRecord("r1", time.Date(2024, time.May, 1, 23, 59, 0, 0, time.UTC), 1, "", ""),
		scannedRecord("r2", time.Date(2024, time.May, 2, 0, 1, 0, 0, time.UTC), 1, "", ""),
	}
	got := FilterForHandover(records, BatchRef{Date: day(2024, time.May, 1), Index: 1}, "", "")
	if len(got) != 1 || got[0].ID != "r1" {
		t.Fatalf("day-exact filter = %v, want [r1]", ids(got))
	}
}

func TestFilterForHandoverEmptyResult(t *testing.T) {
	got := FilterForHandover(nil, BatchRef{Date: day(2024, time.May, 1), Index: 1}, "", "")
	if got == nil || len(got) != 0 {
		t.Fatalf("empty input: got %v, want empty non-nil slice", got)
	}
}

func TestFoldForSearch(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Minh Hưng", "minh hung"},
		{"Đức Phong", "duc phong"},
		{"Thị trấn", "thi tran"},
		{"plain", "plain"},
	}
	for _, c := range cases {
		if got := foldForSearch(c.in); got != c.want {
			t.Errorf("foldForSearch(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func ids(records []ArchiveRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
