package intent

import (
	"fmt"
	"strings"
)

// Intent labels the handler family a user message routes to.
type Intent string

const (
	OrderHistory    Intent = "order_history"
	ProductSearch   Intent = "product_search"
	ProductDetails  Intent = "product_details"
	GeneralInquiry  Intent = "general_inquiry"
	CompareProducts Intent = "compare_products"
)

// Decision is the routing outcome for a single user message.
type Decision struct {
	Intent          Intent
	AssistantNumber string
	HandlerName     string
	Reasoning       string
	Score           int
}

var keywordBuckets = map[Intent][]string{
	OrderHistory: {
		"order", "tracking", "track my", "delivery", "delivered", "return", "refund",
		"purchase history", "my orders", "shipped", "shipment", "where is my",
		"confirmation", "exchange", "cancel my",
	},
	ProductSearch: {
		"search", "find", "show me", "looking for", "browse", "categories",
		"filter", "under $", "in stock", "recommend", "suggest", "options for",
		"do you have", "i need a", "i want a",
	},
	ProductDetails: {
		"tell me more", "more about", "details", "specifications", "specs",
		"dimensions", "materials", "warranty", "available in", "availability",
		"what colors", "this one", "that one", "the first one", "features of",
	},
	CompareProducts: {
		"compare", "comparison", "versus", " vs ", "which is better", "better than",
		"difference between", "differences", "pros and cons", "side by side",
	},
	GeneralInquiry: {
		"policy", "policies", "help", "support", "store hours", "locations",
		"shipping cost", "payment method", "website", "account setup", "login",
		"complaint", "question",
	},
}

// handlers maps each intent to its assistant slot on the wire.
var handlers = map[Intent]struct {
	Number string
	Name   string
}{
	OrderHistory:    {"1", "Order History Handler"},
	ProductSearch:   {"2", "Product Search Handler"},
	ProductDetails:  {"3", "Product Details Handler"},
	GeneralInquiry:  {"4", "General Inquiry Handler"},
	CompareProducts: {"5", "Compare Products Handler"},
}

// intentOrder fixes tie-breaking so routing stays stable run to run.
var intentOrder = []Intent{OrderHistory, ProductSearch, ProductDetails, CompareProducts, GeneralInquiry}

// Classify scores the message against every keyword bucket and routes it to
// the best-scoring handler. Messages with no keyword hits fall through to the
// general inquiry handler.
func Classify(message string) Decision {
	normalized := strings.TrimSpace(strings.ToLower(message))

	scores := make(map[Intent]int)
	if normalized != "" {
		for intent, keywords := range keywordBuckets {
			for _, word := range keywords {
				if strings.Contains(normalized, word) {
					scores[intent] += 3
				}
			}
		}
	}

	best := GeneralInquiry
	bestScore := 0
	for _, intent := range intentOrder {
		if s := scores[intent]; s > bestScore {
			bestScore = s
			best = intent
		}
	}

	h := handlers[best]
	return Decision{
		Intent:          best,
		AssistantNumber: h.Number,
		HandlerName:     h.Name,
		Reasoning:       fmt.Sprintf("Routed to %s (#%s)", h.Name, h.Number),
		Score:           bestScore,
	}
}
