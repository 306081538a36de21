package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/rovermx/groundstation/internal/domain"
)

func TestSearchFilterEmpty(t *testing.T) {
	f := searchFilter("")
	if len(f) != 0 {
		t.Fatalf("empty search should produce an empty filter, got %v", f)
	}
}

func TestSearchFilterIsCaseInsensitiveRegex(t *testing.T) {
	f := searchFilter("left")

	re, ok := f["direction"].(primitive.Regex)
	if !ok {
		t.Fatalf("expected a regex on direction, got %T", f["direction"])
	}
	if re.Options != "i" {
		t.Fatalf("expected case-insensitive regex, got options %q", re.Options)
	}
	if re.Pattern != "left" {
		t.Fatalf("unexpected pattern %q", re.Pattern)
	}
}

func TestRegexQuoteEscapesMetacharacters(t *testing.T) {
	got := regexQuote("a.b*c")
	if got != `a\.b\*c` {
		t.Fatalf("expected metacharacters escaped, got %q", got)
	}
}

func TestDocRoundTrip(t *testing.T) {
	alt := 420.5
	lt := true
	s := &domain.Sample{
		Timestamp:    time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		Lat:          19.24,
		Lng:          -103.7,
		Altitude:     &alt,
		Temperature:  25.4,
		Pressure:     1013.2,
		Direction:    "forward",
		LineTracking: &lt,
	}

	doc := toDoc(s)
	doc.ID = primitive.NewObjectID()
	back := doc.toDomain()

	if back.ID != doc.ID.Hex() {
		t.Fatalf("id not carried through: %s", back.ID)
	}
	if back.Lat != s.Lat || back.Lng != s.Lng || back.Temperature != s.Temperature ||
		back.Pressure != s.Pressure || back.Direction != s.Direction {
		t.Fatalf("fields lost in mapping: %+v", back)
	}
	if back.Altitude == nil || *back.Altitude != alt {
		t.Fatalf("altitude lost in mapping")
	}
	if back.LineTracking == nil || !*back.LineTracking {
		t.Fatalf("lineTracking lost in mapping")
	}
}

func TestDocOmitsOptionalFields(t *testing.T) {
	doc := toDoc(&domain.Sample{Lat: 1, Lng: 2, Temperature: 3, Pressure: 4})

	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["altitude"]; ok {
		t.Fatalf("nil altitude should be omitted from the document")
	}
	if _, ok := m["lineTracking"]; ok {
		t.Fatalf("nil lineTracking should be omitted from the document")
	}
}
