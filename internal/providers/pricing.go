package providers

// modelPrice is USD per 1K tokens, input and output.
type modelPrice struct {
	input  float64
	output float64
}

// calcCost computes call cost in USD from a pricing table, using the
// fallback price for unknown models.
func calcCost(pricing map[string]modelPrice, fallback modelPrice, model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		p = fallback
	}
	return (float64(inputTokens)*p.input + float64(outputTokens)*p.output) / 1000
}

func modelNames(pricing map[string]modelPrice, order []string) []string {
	names := make([]string, 0, len(order))
	for _, name := range order {
		if _, ok := pricing[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
