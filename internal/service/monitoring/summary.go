package monitoring

// HandlerStats aggregates metrics for one handler type.
type HandlerStats struct {
	Count        int
	MeanResponse float64
}

// PerformanceSummary is the client-side rollup of a metrics page.
type PerformanceSummary struct {
	Count        int
	MeanResponse float64
	MaxResponse  float64
	AgentShare   float64
	ByHandler    map[string]HandlerStats
}

// SummarizePerformance folds a metrics page into totals, means and a
// per-handler breakdown. Pure; safe on an empty slice.
func SummarizePerformance(metrics []Metric) PerformanceSummary {
	out := PerformanceSummary{ByHandler: make(map[string]HandlerStats)}
	if len(metrics) == 0 {
		return out
	}

	var total float64
	var agentTurns int
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, m := range metrics {
		out.Count++
		total += m.ResponseTime
		if m.ResponseTime > out.MaxResponse {
			out.MaxResponse = m.ResponseTime
		}
		if m.UseAgent {
			agentTurns++
		}
		sums[m.HandlerType] += m.ResponseTime
		counts[m.HandlerType]++
	}

	out.MeanResponse = total / float64(out.Count)
	out.AgentShare = float64(agentTurns) / float64(out.Count)
	for handler, n := range counts {
		out.ByHandler[handler] = HandlerStats{
			Count:        n,
			MeanResponse: sums[handler] / float64(n),
		}
	}
	return out
}

// RoutingSummary counts routing decisions per handler.
type RoutingSummary struct {
	Total     int
	ByHandler map[string]int
}

// SummarizeRouting folds routing history into per-handler counts.
func SummarizeRouting(data RouterData) RoutingSummary {
	out := RoutingSummary{ByHandler: make(map[string]int)}
	for _, d := range data.Decisions {
		out.Total++
		out.ByHandler[d.HandlerName]++
	}
	return out
}
