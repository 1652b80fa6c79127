package profile

// PersonaTag names a shopping-interest segment. The set is closed; unknown
// values map to PersonaGeneric so every profile has a usable tag.
type PersonaTag string

const (
	PersonaSeasonalFurnitureFloral    PersonaTag = "seasonal_furniture_floral"
	PersonaBooksApparelHomedecor      PersonaTag = "books_apparel_homedecor"
	PersonaApparelFootwearAccessories PersonaTag = "apparel_footwear_accessories"
	PersonaHomedecorElectronicsOut    PersonaTag = "homedecor_electronics_outdoors"
	PersonaGroceriesSeasonalTools     PersonaTag = "groceries_seasonal_tools"
	PersonaFootwearJewelryFurniture   PersonaTag = "footwear_jewelry_furniture"
	PersonaAccessoriesGroceriesBooks  PersonaTag = "accessories_groceries_books"
	PersonaGeneric                    PersonaTag = "generic"
)

// DiscountTag names a price-sensitivity segment.
type DiscountTag string

const (
	DiscountLowerPriced DiscountTag = "lower_priced_products"
	DiscountAll         DiscountTag = "all_discounts"
	DiscountIndifferent DiscountTag = "discount_indifferent"
)

var personaTags = map[string]PersonaTag{
	string(PersonaSeasonalFurnitureFloral):    PersonaSeasonalFurnitureFloral,
	string(PersonaBooksApparelHomedecor):      PersonaBooksApparelHomedecor,
	string(PersonaApparelFootwearAccessories): PersonaApparelFootwearAccessories,
	string(PersonaHomedecorElectronicsOut):    PersonaHomedecorElectronicsOut,
	string(PersonaGroceriesSeasonalTools):     PersonaGroceriesSeasonalTools,
	string(PersonaFootwearJewelryFurniture):   PersonaFootwearJewelryFurniture,
	string(PersonaAccessoriesGroceriesBooks):  PersonaAccessoriesGroceriesBooks,
}

// ParsePersonaTag maps a raw tag to its known value; anything else,
// including the empty string, becomes PersonaGeneric.
func ParsePersonaTag(raw string) PersonaTag {
	if tag, ok := personaTags[raw]; ok {
		return tag
	}
	return PersonaGeneric
}

// ParseDiscountTag maps a raw tag to its known value; anything else
// becomes DiscountIndifferent.
func ParseDiscountTag(raw string) DiscountTag {
	switch DiscountTag(raw) {
	case DiscountLowerPriced, DiscountAll, DiscountIndifferent:
		return DiscountTag(raw)
	}
	return DiscountIndifferent
}

// Profile captures the shopper attributes sent with every turn.
type Profile struct {
	UserID   string      `json:"userId"`
	Name     string      `json:"name"`
	Email    string      `json:"email,omitempty"`
	Age      int         `json:"age,omitempty"`
	Gender   string      `json:"gender,omitempty"`
	Persona  PersonaTag  `json:"persona"`
	Discount DiscountTag `json:"discountPersona"`
}

// Seed returns the built-in shopper profiles used by the dev backend and
// the profile picker.
func Seed() []Profile {
	return []Profile{
		{
			UserID:   "shopper-maya",
			Name:     "Maya Chen",
			Email:    "maya.chen@example.com",
			Age:      29,
			Gender:   "F",
			Persona:  PersonaSeasonalFurnitureFloral,
			Discount: DiscountLowerPriced,
		},
		{
			UserID:   "shopper-derek",
			Name:     "Derek Okafor",
			Email:    "derek.okafor@example.com",
			Age:      41,
			Gender:   "M",
			Persona:  PersonaBooksApparelHomedecor,
			Discount: DiscountAll,
		},
		{
			UserID:   "shopper-priya",
			Name:     "Priya Raman",
			Email:    "priya.raman@example.com",
			Age:      34,
			Gender:   "F",
			Persona:  PersonaApparelFootwearAccessories,
			Discount: DiscountIndifferent,
		},
		{
			UserID:   "shopper-sam",
			Name:     "Sam Alvarez",
			Email:    "sam.alvarez@example.com",
			Age:      25,
			Gender:   "M",
			Persona:  PersonaHomedecorElectronicsOut,
			Discount: DiscountAll,
		},
	}
}
