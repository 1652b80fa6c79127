package profile

import "testing"

func TestParsePersonaTagKnownValues(t *testing.T) {
	for _, raw := range []string{
		"seasonal_furniture_floral",
		"books_apparel_homedecor",
		"apparel_footwear_accessories",
		"homedecor_electronics_outdoors",
		"groceries_seasonal_tools",
		"footwear_jewelry_furniture",
		"accessories_groceries_books",
	} {
		if got := ParsePersonaTag(raw); string(got) != raw {
			t.Fatalf("ParsePersonaTag(%q) = %q", raw, got)
		}
	}
}

func TestParsePersonaTagTotality(t *testing.T) {
	for _, raw := range []string{"", "furniture", "SEASONAL_FURNITURE_FLORAL", "books apparel"} {
		if got := ParsePersonaTag(raw); got != PersonaGeneric {
			t.Fatalf("ParsePersonaTag(%q) = %q, want generic", raw, got)
		}
	}
}

func TestParseDiscountTagTotality(t *testing.T) {
	if got := ParseDiscountTag("all_discounts"); got != DiscountAll {
		t.Fatalf("ParseDiscountTag(all_discounts) = %q", got)
	}
	if got := ParseDiscountTag("half_price"); got != DiscountIndifferent {
		t.Fatalf("unknown discount tag should default, got %q", got)
	}
}

func TestMemoryStoreFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())
	p, ok := store.FindByID("shopper-maya")
	if !ok {
		t.Fatal("seed profile missing")
	}
	if p.Persona != PersonaSeasonalFurnitureFloral {
		t.Fatalf("unexpected persona: %s", p.Persona)
	}
	if _, ok := store.FindByID("nobody"); ok {
		t.Fatal("expected lookup miss")
	}
}
