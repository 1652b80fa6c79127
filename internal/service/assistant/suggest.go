package assistant

import (
	"fmt"
	"strings"

	"github.com/retailworks/shopchat/internal/model/profile"
)

// categoryWords spells persona tag segments the way a chip should read.
var categoryWords = map[string]string{
	"homedecor": "home decor",
	"seasonal":  "seasonal picks",
	"outdoors":  "outdoor gear",
}

// Suggest builds the four follow-up chips for a shopper: a recent-interest
// follow-up, a persona category to explore, a catalog availability question,
// and a price-preference chip. refresh rotates the featured category and
// product so forced refreshes don't repeat themselves.
func Suggest(persona profile.PersonaTag, discount profile.DiscountTag, recentProduct string, refresh int) []string {
	shelf, ok := shelves[persona]
	if !ok {
		shelf = shelves[profile.PersonaGeneric]
	}
	cats := personaCategories(persona)

	first := fmt.Sprintf("What do you have in %s?", cats[refresh%len(cats)])
	if recentProduct != "" {
		first = fmt.Sprintf("Tell me more about the %s", recentProduct)
	}

	featured := shelf[refresh%len(shelf)]
	explore := cats[(refresh+1)%len(cats)]

	return []string{
		first,
		fmt.Sprintf("What's new in %s?", explore),
		fmt.Sprintf("Is the %s in stock?", featured.Name),
		discountChip(discount),
	}
}

func personaCategories(persona profile.PersonaTag) []string {
	if _, ok := shelves[persona]; !ok || persona == profile.PersonaGeneric {
		return []string{"new arrivals", "popular items", "today's picks"}
	}

	parts := strings.Split(string(persona), "_")
	cats := make([]string, len(parts))
	for i, part := range parts {
		if word, ok := categoryWords[part]; ok {
			part = word
		}
		cats[i] = part
	}
	return cats
}

func discountChip(discount profile.DiscountTag) string {
	switch discount {
	case profile.DiscountLowerPriced:
		return "Find me budget-friendly options"
	case profile.DiscountAll:
		return "What deals are running today?"
	default:
		return "Show me your best quality picks"
	}
}
