package editor

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNoImage means the response parsed but carried no image.
	ErrNoImage = errors.New("no image in response")

	// ErrMalformedImage means the response carried an image entry whose
	// URL is not a well-formed base64 data URI.
	ErrMalformedImage = errors.New("malformed image in response")
)

// dataURIPattern is the fixed grammar data:<media-type>;base64,<payload>.
var dataURIPattern = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

// Result is the outcome of one edit request.
type Result struct {
	Data      []byte
	MediaType string
}

// chatResponse is the strict schema of the vendor's completion
// response; any shape mismatch surfaces as a typed extraction error
// instead of a nil dereference.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Images []struct {
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"images"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// errorResponse is the vendor's failure envelope.
type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Extract locates the embedded image in a successful response body
// and decodes it to binary.
func Extract(body []byte) (*Result, error) {
	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrNoImage, err)
	}

	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.Images) == 0 {
		return nil, ErrNoImage
	}

	url := resp.Choices[0].Message.Images[0].ImageURL.URL
	if !strings.HasPrefix(url, "data:") {
		return nil, fmt.Errorf("%w: image URL is not a data URI", ErrMalformedImage)
	}

	match := dataURIPattern.FindStringSubmatch(url)
	if match == nil {
		return nil, fmt.Errorf("%w: data URI does not match data:<type>;base64,<payload>", ErrMalformedImage)
	}

	mediaType := match[1]
	data, err := base64.StdEncoding.DecodeString(match[2])
	if err != nil {
		return nil, fmt.Errorf("%w: decoding base64 payload: %v", ErrMalformedImage, err)
	}

	return &Result{Data: data, MediaType: mediaType}, nil
}

// vendorMessage pulls the error message out of a failure body, falling
// back to an empty string when the body is not the expected envelope.
func vendorMessage(body []byte) string {
	var resp errorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Error.Message
}
