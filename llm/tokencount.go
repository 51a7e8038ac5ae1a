package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding approximates every provider's tokenizer with OpenAI's
// cl100k_base encoding. Exact per-provider counts differ slightly; this is
// the same approximation every estimate_token_count caller in the source
// tooling accepted, since the count only gates compaction thresholds rather
// than billing.
const defaultEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func sharedEncoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(defaultEncoding)
	})
	return enc, encErr
}

// EstimateTokenCount returns e's best estimate of the token count of text,
// falling back to a byte/4 heuristic if the encoder could not be loaded.
func EstimateTokenCount(text string) int {
	e, err := sharedEncoding()
	if err != nil {
		return len(text) / 4
	}
	return len(e.Encode(text, nil, nil))
}
