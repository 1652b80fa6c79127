package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/retailworks/shopchat/internal/model/profile"
)

// HTTPDoer is the slice of http.Client the prefetcher needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is one batch of suggestion chips.
type Result struct {
	Items        []string
	FromFallback bool
	RefreshCount int
}

// Prefetcher fetches suggestion chips for the next turn. It never
// errors: remote failures serve a deterministic persona table instead.
type Prefetcher struct {
	client  HTTPDoer
	url     string
	profile profile.Profile

	mu        sync.Mutex
	rnd       *rand.Rand
	refreshes int
}

// NewPrefetcher wires a prefetcher for one shopper. rnd drives the
// forced-refresh shuffle; nil gets a time-seeded source.
func NewPrefetcher(client HTTPDoer, url string, p profile.Profile, rnd *rand.Rand) *Prefetcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Prefetcher{client: client, url: url, profile: p, rnd: rnd}
}

// Fetch returns the next batch of chips. force bumps the refresh
// counter and, when the fallback ends up serving, shuffles it so
// repeat refreshes don't look frozen.
func (p *Prefetcher) Fetch(ctx context.Context, sessionID string, force bool) Result {
	if force {
		p.mu.Lock()
		p.refreshes++
		p.mu.Unlock()
	}

	items, err := p.fetchRemote(ctx, sessionID, force)
	if err != nil {
		log.Printf("[recommend] remote fetch failed, serving fallback: %v", err)
		return Result{
			Items:        p.fallback(force),
			FromFallback: true,
			RefreshCount: p.RefreshCount(),
		}
	}
	return Result{Items: items, RefreshCount: p.RefreshCount()}
}

// RefreshCount reports how many forced refreshes have been requested.
func (p *Prefetcher) RefreshCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.refreshes
}

func (p *Prefetcher) fetchRemote(ctx context.Context, sessionID string, force bool) ([]string, error) {
	body := struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id"`
		UserData  struct {
			Persona         string `json:"persona"`
			DiscountPersona string `json:"discount_persona"`
		} `json:"user_data"`
		ForceRefresh bool `json:"force_refresh"`
	}{
		UserID:       p.profile.UserID,
		SessionID:    sessionID,
		ForceRefresh: force,
	}
	body.UserData.Persona = string(p.profile.Persona)
	body.UserData.DiscountPersona = string(p.profile.Discount)

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch recommendations: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch recommendations: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Recommendations []string `json:"recommendations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode recommendations: %w", err)
	}
	if len(out.Recommendations) == 0 {
		return nil, errors.New("empty recommendations")
	}
	return out.Recommendations, nil
}

func (p *Prefetcher) fallback(force bool) []string {
	items := fallbackItems(p.profile.Persona, p.profile.Discount)
	if force {
		p.mu.Lock()
		p.rnd.Shuffle(len(items), func(i, j int) {
			items[i], items[j] = items[j], items[i]
		})
		p.mu.Unlock()
	}
	return items
}

// fallbackItems is the total persona-to-chips mapping. Each call
// returns a fresh slice; the fourth chip depends on the discount tag.
func fallbackItems(persona profile.PersonaTag, discount profile.DiscountTag) []string {
	switch persona {
	case profile.PersonaSeasonalFurnitureFloral:
		fourth := "What's new in home design?"
		if discount == profile.DiscountLowerPriced {
			fourth = "Show me budget-friendly options"
		}
		return []string{
			"Show me seasonal home decor",
			"What furniture is trending now?",
			"Help me find floral patterns",
			fourth,
		}

	case profile.PersonaBooksApparelHomedecor:
		fourth := "What's popular right now?"
		if discount == profile.DiscountAll {
			fourth = "What deals are available?"
		}
		return []string{
			"Recommend some good books",
			"Show me latest fashion trends",
			"Help me decorate my space",
			fourth,
		}

	case profile.PersonaApparelFootwearAccessories:
		fourth := "Show me premium collections"
		if discount == profile.DiscountLowerPriced {
			fourth = "Find me affordable styles"
		}
		return []string{
			"Show me fashion trends",
			"Help me find the perfect shoes",
			"What accessories are popular?",
			fourth,
		}

	case profile.PersonaHomedecorElectronicsOut:
		fourth := "What's trending in home tech?"
		if discount == profile.DiscountAll {
			fourth = "Show me tech deals"
		}
		return []string{
			"Show me smart home gadgets",
			"Help me find outdoor gear",
			"What's new in electronics?",
			fourth,
		}

	case profile.PersonaGroceriesSeasonalTools:
		fourth := "What's on sale today?"
		if discount == profile.DiscountIndifferent {
			fourth = "Show me quality products"
		}
		return []string{
			"Help me with grocery shopping",
			"Show me seasonal essentials",
			"What tools do I need?",
			fourth,
		}

	case profile.PersonaFootwearJewelryFurniture:
		fourth := "Show me premium options"
		if discount == profile.DiscountAll {
			fourth = "Find me great deals"
		}
		return []string{
			"Help me find perfect shoes",
			"Show me jewelry collections",
			"What furniture fits my style?",
			fourth,
		}

	case profile.PersonaAccessoriesGroceriesBooks:
		fourth := "What's popular today?"
		if discount == profile.DiscountIndifferent {
			fourth = "Show me quality items"
		}
		return []string{
			"Recommend accessories for me",
			"Help with grocery planning",
			"Suggest some good reads",
			fourth,
		}

	default:
		return []string{
			"What are you shopping for today?",
			"Show me popular items",
			"Help me find deals",
			"What's trending now?",
		}
	}
}
