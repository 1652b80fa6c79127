package assistant

import (
	"strings"
	"time"

	"github.com/retailworks/shopchat/internal/model/chat"
	"github.com/retailworks/shopchat/internal/model/profile"
)

// shelves holds the persona-slanted product fixtures the scripted
// assistant serves in place of a live catalog search.
var shelves = map[profile.PersonaTag][]chat.Product{
	profile.PersonaSeasonalFurnitureFloral: {
		{ID: "prod-fl-001", Name: "Pressed Floral Wall Art", Description: "Framed botanical prints on archival paper", ImageURL: "https://images.retailworks.dev/prod-fl-001.jpg", Price: 34.00, Stock: 22},
		{ID: "prod-fu-104", Name: "Walnut Accent Table", Description: "Solid walnut side table with splayed legs", ImageURL: "https://images.retailworks.dev/prod-fu-104.jpg", Price: 149.00, Stock: 8},
		{ID: "prod-se-210", Name: "Autumn Eucalyptus Wreath", Description: "Preserved eucalyptus wreath for door or mantel", ImageURL: "https://images.retailworks.dev/prod-se-210.jpg", Price: 42.50, Stock: 15},
	},
	profile.PersonaBooksApparelHomedecor: {
		{ID: "prod-bk-311", Name: "The Quiet Harbor", Description: "Hardcover literary novel, 2025 staff pick", ImageURL: "https://images.retailworks.dev/prod-bk-311.jpg", Price: 24.99, Stock: 31},
		{ID: "prod-ap-415", Name: "Linen Overshirt", Description: "Relaxed-fit washed linen overshirt", ImageURL: "https://images.retailworks.dev/prod-ap-415.jpg", Price: 58.00, Gender: "M", Stock: 12},
		{ID: "prod-hd-518", Name: "Ceramic Table Vase", Description: "Hand-thrown stoneware vase, matte glaze", ImageURL: "https://images.retailworks.dev/prod-hd-518.jpg", Price: 31.25, Stock: 19},
	},
	profile.PersonaApparelFootwearAccessories: {
		{ID: "prod-ap-612", Name: "Merino Crewneck Sweater", Description: "Midweight merino knit, machine washable", ImageURL: "https://images.retailworks.dev/prod-ap-612.jpg", Price: 74.00, Gender: "F", Stock: 17},
		{ID: "prod-fw-703", Name: "Trail Runner Sneakers", Description: "Cushioned trail shoes with grippy outsole", ImageURL: "https://images.retailworks.dev/prod-fw-703.jpg", Price: 89.95, Stock: 9},
		{ID: "prod-ac-808", Name: "Leather Card Wallet", Description: "Full-grain leather slim wallet, six slots", ImageURL: "https://images.retailworks.dev/prod-ac-808.jpg", Price: 39.00, Stock: 26},
	},
	profile.PersonaHomedecorElectronicsOut: {
		{ID: "prod-el-901", Name: "Smart Ambient Lamp", Description: "App-controlled lamp with tunable warm light", ImageURL: "https://images.retailworks.dev/prod-el-901.jpg", Price: 64.99, Stock: 14},
		{ID: "prod-hd-913", Name: "Woven Throw Blanket", Description: "Recycled-cotton throw in herringbone weave", ImageURL: "https://images.retailworks.dev/prod-hd-913.jpg", Price: 45.00, Stock: 23},
		{ID: "prod-ou-922", Name: "Packable Camp Hammock", Description: "Ripstop nylon hammock with tree straps", ImageURL: "https://images.retailworks.dev/prod-ou-922.jpg", Price: 54.50, Stock: 11},
	},
	profile.PersonaGroceriesSeasonalTools: {
		{ID: "prod-gr-130", Name: "Single-Origin Coffee Beans", Description: "Whole-bean medium roast, 12 oz bag", ImageURL: "https://images.retailworks.dev/prod-gr-130.jpg", Price: 16.75, Stock: 40},
		{ID: "prod-se-141", Name: "Harvest Spice Candle", Description: "Soy candle with clove and orange peel", ImageURL: "https://images.retailworks.dev/prod-se-141.jpg", Price: 18.00, Stock: 27},
		{ID: "prod-to-155", Name: "Garden Tool Set", Description: "Ten-piece steel set with canvas tote", ImageURL: "https://images.retailworks.dev/prod-to-155.jpg", Price: 67.00, Stock: 6},
	},
	profile.PersonaFootwearJewelryFurniture: {
		{ID: "prod-fw-233", Name: "Suede Chelsea Boots", Description: "Water-resistant suede with crepe sole", ImageURL: "https://images.retailworks.dev/prod-fw-233.jpg", Price: 129.00, Gender: "F", Stock: 7},
		{ID: "prod-jw-247", Name: "Sterling Pendant Necklace", Description: "Sterling silver pendant on 18-inch chain", ImageURL: "https://images.retailworks.dev/prod-jw-247.jpg", Price: 85.00, Stock: 13},
		{ID: "prod-fu-259", Name: "Mid-Century Reading Chair", Description: "Upholstered lounge chair with oak frame", ImageURL: "https://images.retailworks.dev/prod-fu-259.jpg", Price: 289.00, Stock: 4},
	},
	profile.PersonaAccessoriesGroceriesBooks: {
		{ID: "prod-ac-361", Name: "Canvas Weekender Bag", Description: "Waxed canvas duffel with leather trim", ImageURL: "https://images.retailworks.dev/prod-ac-361.jpg", Price: 72.00, Stock: 10},
		{ID: "prod-gr-374", Name: "Organic Tea Sampler", Description: "Twelve loose-leaf blends in a gift tin", ImageURL: "https://images.retailworks.dev/prod-gr-374.jpg", Price: 22.40, Stock: 33},
		{ID: "prod-bk-388", Name: "Field Notes on Cooking", Description: "Seasonal cooking essays with 60 recipes", ImageURL: "https://images.retailworks.dev/prod-bk-388.jpg", Price: 27.50, Stock: 18},
	},
	profile.PersonaGeneric: {
		{ID: "prod-gn-401", Name: "Everyday Canvas Tote", Description: "Structured tote with interior pockets", ImageURL: "https://images.retailworks.dev/prod-gn-401.jpg", Price: 29.00, Stock: 35},
		{ID: "prod-gn-412", Name: "Insulated Water Bottle", Description: "20 oz double-wall steel bottle", ImageURL: "https://images.retailworks.dev/prod-gn-412.jpg", Price: 21.95, Stock: 42},
		{ID: "prod-gn-427", Name: "Desk Organizer Set", Description: "Three bamboo trays that nest flat", ImageURL: "https://images.retailworks.dev/prod-gn-427.jpg", Price: 33.00, Stock: 21},
		{ID: "prod-gn-439", Name: "Wireless Earbuds", Description: "Bluetooth earbuds with charging case", ImageURL: "https://images.retailworks.dev/prod-gn-439.jpg", Price: 59.99, Stock: 16},
	},
}

// searchShelf returns the shelf for a persona, narrowed by any query
// tokens that match product names or descriptions. A filter that strips
// the shelf bare returns the whole shelf instead so the stub always has
// something to show.
func searchShelf(tag profile.PersonaTag, query string) []chat.Product {
	shelf, ok := shelves[tag]
	if !ok {
		shelf = shelves[profile.PersonaGeneric]
	}

	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return append([]chat.Product(nil), shelf...)
	}

	var matched []chat.Product
	for _, p := range shelf {
		haystack := strings.ToLower(p.Name + " " + p.Description)
		for _, tok := range tokens {
			if strings.Contains(haystack, tok) {
				matched = append(matched, p)
				break
			}
		}
	}
	if len(matched) == 0 {
		return append([]chat.Product(nil), shelf...)
	}
	return matched
}

// queryTokens keeps the query words long enough to be meaningful filters.
func queryTokens(query string) []string {
	var tokens []string
	for _, word := range strings.Fields(strings.ToLower(query)) {
		word = strings.Trim(word, ".,!?\"'")
		if len(word) >= 4 {
			tokens = append(tokens, word)
		}
	}
	return tokens
}

// orderHistoryFixture fabricates a recent order trail anchored to now.
func orderHistoryFixture(now time.Time) []chat.Order {
	return []chat.Order{
		{OrderID: "ORD-10482", OrderDate: now.AddDate(0, 0, -3).Format("2006-01-02"), Status: "Shipped"},
		{OrderID: "ORD-10417", OrderDate: now.AddDate(0, 0, -16).Format("2006-01-02"), Status: "Delivered"},
		{OrderID: "ORD-10329", OrderDate: now.AddDate(0, 0, -41).Format("2006-01-02"), Status: "Delivered"},
	}
}
