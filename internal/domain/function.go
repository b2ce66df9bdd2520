package domain

// FunctionResult is what a registry handler hands back to the composer.
// Failures are values, not errors, so they can be folded into the next
// generation round.
type FunctionResult struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    Kind        `json:"kind,omitempty"`
}

func Succeeded(data interface{}, message string) FunctionResult {
	return FunctionResult{Success: true, Data: data, Message: message}
}

func Failed(kind Kind, reason string) FunctionResult {
	return FunctionResult{Success: false, Error: reason, Kind: kind}
}
