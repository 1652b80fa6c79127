package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/retailworks/shopchat/internal/config"
	"github.com/retailworks/shopchat/internal/service/monitoring"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	base := flag.String("base", "", "monitoring API root (default: configured API URL)")
	view := flag.String("view", "performance", "view to render: sessions, conversations, context, router, performance, agent")
	sessionID := flag.String("session", "", "session id (conversations, context, router, agent)")
	userID := flag.String("user", "", "user id (sessions; optional filter for performance)")
	handler := flag.String("handler", "", "handler type filter for performance")
	timeRange := flag.String("range", monitoring.RangeDay, "performance window: 1h, 24h, 7d, 30d")
	limit := flag.Int("limit", 0, "max performance rows (default 100)")
	asJSON := flag.Bool("json", false, "emit the raw payload as JSON")
	timeout := flag.Duration("timeout", 15*time.Second, "request timeout")
	flag.Parse()

	root := *base
	if root == "" {
		root = cfg.Endpoints.APIURL
	}
	client := monitoring.NewClient(root, nil)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *view {
	case "sessions":
		user := *userID
		if user == "" {
			user = cfg.Profile.UserID
		}
		runSessions(ctx, client, user, *asJSON)
	case "conversations":
		requireSession(*sessionID)
		runConversations(ctx, client, *sessionID, *asJSON)
	case "context":
		requireSession(*sessionID)
		runContext(ctx, client, *sessionID, *asJSON)
	case "router":
		requireSession(*sessionID)
		runRouter(ctx, client, *sessionID, *asJSON)
	case "performance":
		q := monitoring.Query{
			UserID:      *userID,
			HandlerType: *handler,
			TimeRange:   *timeRange,
			Limit:       *limit,
		}
		runPerformance(ctx, client, q, *asJSON)
	case "agent":
		requireSession(*sessionID)
		runAgent(ctx, client, *sessionID, *asJSON)
	default:
		flag.Usage()
		log.Fatalf("unknown view %q", *view)
	}
}

func requireSession(id string) {
	if id == "" {
		flag.Usage()
		log.Fatal("this view needs -session")
	}
}

func runSessions(ctx context.Context, client *monitoring.Client, userID string, asJSON bool) {
	sessions, err := client.Sessions(ctx, userID)
	if err != nil {
		log.Fatalf("list sessions: %v", err)
	}
	if asJSON {
		printJSON(sessions)
		return
	}

	fmt.Printf("sessions for %s: %d\n", userID, len(sessions))
	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("  %s  msgs=%-3d  last=%s  %s\n", s.SessionID, s.MessageCount, s.LastActivity, title)
	}
}

func runConversations(ctx context.Context, client *monitoring.Client, sessionID string, asJSON bool) {
	conversations, err := client.Conversations(ctx, sessionID)
	if err != nil {
		log.Fatalf("list conversations: %v", err)
	}
	if asJSON {
		printJSON(conversations)
		return
	}

	fmt.Printf("conversations in %s: %d\n", sessionID, len(conversations))
	for _, c := range conversations {
		fmt.Printf("\n[%s] %d messages, updated %s\n", c.HandlerType, c.MessageCount, c.UpdatedAt)
		for _, msg := range c.Messages {
			fmt.Printf("  %-9s %s\n", msg.Role+":", truncate(msg.Content, 100))
		}
	}
}

func runContext(ctx context.Context, client *monitoring.Client, sessionID string, asJSON bool) {
	shared, err := client.Context(ctx, sessionID)
	if err != nil {
		log.Fatalf("fetch context: %v", err)
	}
	if asJSON {
		printJSON(shared)
		return
	}
	if shared == nil {
		fmt.Printf("no shared context recorded for %s\n", sessionID)
		return
	}

	fmt.Printf("shared context for %s (updated %s)\n", sessionID, shared.LastUpdated)
	fmt.Printf("  products seen: %d\n", len(shared.Products))
	for _, p := range shared.Products {
		fmt.Printf("    %s ($%.2f)\n", p.Name, p.Price)
	}
	fmt.Printf("  orders seen: %d\n", len(shared.Orders))
	for _, o := range shared.Orders {
		fmt.Printf("    %s %s (%s)\n", o.OrderID, o.OrderDate, o.Status)
	}
	if len(shared.SearchHistory) > 0 {
		fmt.Printf("  searches: %v\n", shared.SearchHistory)
	}
	for k, v := range shared.UserPreferences {
		fmt.Printf("  preference %s = %s\n", k, v)
	}
}

func runRouter(ctx context.Context, client *monitoring.Client, sessionID string, asJSON bool) {
	data, err := client.RouterHistory(ctx, sessionID)
	if err != nil {
		log.Fatalf("fetch router history: %v", err)
	}
	if asJSON {
		printJSON(data)
		return
	}

	fmt.Printf("routing decisions for %s: %d\n", sessionID, len(data.Decisions))
	for _, d := range data.Decisions {
		fmt.Printf("  %s  ->%-16s  %q\n", d.Timestamp, d.HandlerName, truncate(d.UserMessage, 60))
		if d.Reasoning != "" {
			fmt.Printf("      %s\n", d.Reasoning)
		}
	}

	summary := monitoring.SummarizeRouting(data)
	if summary.Total == 0 {
		return
	}
	fmt.Println("\nby handler:")
	for _, handler := range sortedKeys(summary.ByHandler) {
		fmt.Printf("  %-16s %d\n", handler, summary.ByHandler[handler])
	}
}

func runPerformance(ctx context.Context, client *monitoring.Client, q monitoring.Query, asJSON bool) {
	metrics, err := client.Performance(ctx, q)
	if err != nil {
		log.Fatalf("fetch performance: %v", err)
	}
	if asJSON {
		printJSON(metrics)
		return
	}

	summary := monitoring.SummarizePerformance(metrics)
	fmt.Printf("requests: %d\n", summary.Count)
	if summary.Count == 0 {
		return
	}
	fmt.Printf("response time: mean %.3fs, max %.3fs\n", summary.MeanResponse, summary.MaxResponse)
	fmt.Printf("agent share: %.0f%%\n", summary.AgentShare*100)

	fmt.Println("\nby handler:")
	handlers := make([]string, 0, len(summary.ByHandler))
	for h := range summary.ByHandler {
		handlers = append(handlers, h)
	}
	sort.Strings(handlers)
	for _, h := range handlers {
		stats := summary.ByHandler[h]
		fmt.Printf("  %-16s %4d requests, mean %.3fs\n", h, stats.Count, stats.MeanResponse)
	}

	fmt.Println("\nrecent:")
	for i, m := range metrics {
		if i == 10 {
			fmt.Printf("  ... %d more\n", len(metrics)-i)
			break
		}
		fmt.Printf("  %s  %-16s %.3fs  session=%s\n", m.Timestamp, m.HandlerType, m.ResponseTime, m.SessionID)
	}
}

func runAgent(ctx context.Context, client *monitoring.Client, sessionID string, asJSON bool) {
	conv, err := client.AgentConversation(ctx, sessionID)
	if err != nil {
		log.Fatalf("fetch agent conversation: %v", err)
	}
	if asJSON {
		printJSON(conv)
		return
	}

	meta := conv.AgentMetadata
	fmt.Printf("agent conversation %s (retrieved %s)\n", conv.SessionID, conv.RetrievedAt)
	fmt.Printf("  messages: %d total, %d user, %d assistant\n", meta.TotalMessages, meta.UserMessages, meta.AssistantMessages)
	fmt.Printf("  tool executions: %d, agents: %v\n", meta.ToolExecutions, meta.AgentTypesUsed)

	if conv.EventLoopMetrics.HasMetrics && conv.EventLoopMetrics.AggregatedMetrics != nil {
		agg := conv.EventLoopMetrics.AggregatedMetrics
		fmt.Printf("  event loop: %.0f cycles, %.2fs, %d tokens over %d snapshots\n",
			agg.TotalCycles, agg.TotalDuration, agg.TotalTokens, conv.EventLoopMetrics.TotalSnapshots)
		fmt.Printf("  per message: %.1f cycles, %.2fs, %.0f tokens\n",
			agg.AvgCyclesPerMessage, agg.AvgDurationPerMessage, agg.AvgTokensPerMessage)
	}

	for _, msg := range conv.AgentMessages {
		label := msg.Role
		if msg.Metadata.AgentType != "" {
			label += "/" + msg.Metadata.AgentType
		}
		fmt.Printf("\n[%s] %s\n  %s\n", label, msg.Timestamp, truncate(msg.Content, 200))
	}
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("encode json: %v", err)
	}
	fmt.Println(string(data))
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
