package tiktoken

import (
	"github.com/pkoukk/tiktoken-go"
	"github.com/sweetpotato0/ewa-agent/rag/tokenizer"
)

// DefaultEncoding is used for models tiktoken does not know, such as local Ollama models.
const DefaultEncoding = "cl100k_base"

// Tokenizer counts tokens with a BPE encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

var _ tokenizer.Counter = (*Tokenizer)(nil)

// New loads the encoding for a model name, or an encoding name. Unknown names
// fall back to DefaultEncoding.
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		// try by name
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			enc, err = tiktoken.GetEncoding(DefaultEncoding)
			if err != nil {
				return nil, err
			}
		}
	}
	return &Tokenizer{enc: enc}, nil
}

// Encode returns token ids.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens implements tokenizer.Counter.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.Encode(text))
}

// Decode maps token ids back to text.
func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}
