package editor

import "fmt"

// Outcome is the user-facing category of an upstream failure.
type Outcome int

const (
	OutcomeGeneric Outcome = iota
	OutcomeRateLimited
	OutcomeInsufficientCredit
	OutcomeInvalidCredential
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeInsufficientCredit:
		return "insufficient_credit"
	case OutcomeInvalidCredential:
		return "invalid_credential"
	default:
		return "generic"
	}
}

// UpstreamError is a classified failure of the edit request.
type UpstreamError struct {
	Outcome Outcome
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (%s, status %d): %s", e.Outcome, e.Status, e.Message)
}

// UserMessage renders the fixed template for the outcome. The generic
// case interpolates the upstream message verbatim.
func (e *UpstreamError) UserMessage() string {
	switch e.Outcome {
	case OutcomeRateLimited:
		return "Rate limit exceeded. Please try again later."
	case OutcomeInsufficientCredit:
		return "Insufficient OpenRouter balance. Top up at https://openrouter.ai/"
	case OutcomeInvalidCredential:
		return "Invalid OpenRouter API key. Check the bot configuration."
	default:
		return fmt.Sprintf("API error: %s", e.Message)
	}
}

// Classify maps an HTTP status and vendor message to an outcome. A
// status of zero means the failure never produced a response.
func Classify(status int, vendorMessage string) *UpstreamError {
	e := &UpstreamError{Status: status, Message: vendorMessage}

	switch status {
	case 429:
		e.Outcome = OutcomeRateLimited
	case 402:
		e.Outcome = OutcomeInsufficientCredit
	case 401, 403:
		e.Outcome = OutcomeInvalidCredential
	default:
		e.Outcome = OutcomeGeneric
	}

	return e
}
