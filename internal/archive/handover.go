package archive

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LocalityAll disables the locality refinement.
const LocalityAll = "all"

// FilterForHandover selects the records to hand over for one batch:
// Scanned records whose (scan date, batch index) matches the batch,
// whose certificate type equals certType (the default type when certType
// is empty), optionally narrowed to localities containing localityFilter
// as a case- and diacritic-insensitive substring. Input order is kept, so
// repeated calls over the same record set number export rows identically.
// An empty result is not an error.
func FilterForHandover(records []ArchiveRecord, batch BatchRef, certType, localityFilter string) []ArchiveRecord {
	if certType == "" {
		certType = DefaultCertificateType
	}
	byLocality := localityFilter != "" && localityFilter != LocalityAll
	var needle string
	if byLocality {
		needle = foldForSearch(localityFilter)
	}

	out := make([]ArchiveRecord, 0)
	for _, rec := range records {
		if rec.ScanState != ScanStateScanned || rec.ScanDate == nil {
			continue
		}
		if rec.ScanBatchIndex != batch.Index || !SameDay(*rec.ScanDate, batch.Date) {
			continue
		}
		if rec.EffectiveCertificateType() != certType {
			continue
		}
		if byLocality && !strings.Contains(foldForSearch(rec.Locality), needle) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// foldForSearch lowercases s and strips diacritics so "minh hung" matches
// "Minh Hưng". Đ/đ has no combining mark and is mapped by hand.
func foldForSearch(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ReplaceAll(folded, "đ", "d")
	folded = strings.ReplaceAll(folded, "Đ", "D")
	return strings.ToLower(folded)
}
