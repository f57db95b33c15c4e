package ai

// Model identifiers. GPT4 is the base tier (8k context); GPT4o is the
// large-context multimodal tier the relay upgrades to for attachments.
const (
	ModelGPT4       = "gpt-4"
	ModelGPT4o      = "gpt-4o"
	ModelGPT4Turbo  = "gpt-4-turbo-preview"
	ModelGPT35Turbo = "gpt-3.5-turbo"
)

// ModelInfo holds context size and pricing per 1k tokens.
type ModelInfo struct {
	MaxTokens               int
	CostPer1kPromptTokens   float64
	CostPer1kCompletionToks float64
}

var modelInfo = map[string]ModelInfo{
	ModelGPT4: {
		MaxTokens:               8192,
		CostPer1kPromptTokens:   0.03,
		CostPer1kCompletionToks: 0.06,
	},
	ModelGPT4o: {
		MaxTokens:               128000,
		CostPer1kPromptTokens:   0.005,
		CostPer1kCompletionToks: 0.015,
	},
	ModelGPT4Turbo: {
		MaxTokens:               128000,
		CostPer1kPromptTokens:   0.01,
		CostPer1kCompletionToks: 0.03,
	},
	ModelGPT35Turbo: {
		MaxTokens:               16384,
		CostPer1kPromptTokens:   0.0005,
		CostPer1kCompletionToks: 0.0015,
	},
}

// GetModelInfo returns pricing info, falling back to the base tier for
// unknown models.
func GetModelInfo(model string) ModelInfo {
	if info, ok := modelInfo[model]; ok {
		return info
	}
	return modelInfo[ModelGPT4]
}

func IsModelAvailable(model string) bool {
	_, ok := modelInfo[model]
	return ok
}

// AvailableModels lists the known model identifiers in a stable order.
func AvailableModels() []string {
	return []string{ModelGPT35Turbo, ModelGPT4, ModelGPT4Turbo, ModelGPT4o}
}

// CalculateCost maps token usage to an estimated dollar cost. Display only,
// never used for billing.
func CalculateCost(model string, promptTokens, completionTokens int) float64 {
	info := GetModelInfo(model)
	promptCost := float64(promptTokens) / 1000 * info.CostPer1kPromptTokens
	completionCost := float64(completionTokens) / 1000 * info.CostPer1kCompletionToks
	return promptCost + completionCost
}
