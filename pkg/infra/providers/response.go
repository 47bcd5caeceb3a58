package providers

// CompletionResponse is the provider-neutral shape of one generated answer.
// Each client maps its SDK's response into this before it leaves the package.
type CompletionResponse struct {
	ID       string `json:"id"`
	Model    string `json:"model"`
	Response string `json:"response"`
	Usage    Usage  `json:"usage"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
