package openai

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// tokenCounter estimates prompt tokens for OpenAI-compatible servers that
// return no usage block. The BPE encoding is loaded once, on first use.
type tokenCounter struct {
	model  string
	load   func(model string) (*tiktoken.Tiktoken, error)
	logger *zap.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

func newTokenCounter(model string, logger *zap.Logger) *tokenCounter {
	return &tokenCounter{model: model, load: loadEncoding, logger: logger}
}

func loadEncoding(model string) (*tiktoken.Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return enc, nil
	}
	return tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE) //nolint:wrapcheck // caller logs
}

// count returns the token total for texts. Without an encoding it falls back
// to one token per four characters.
func (c *tokenCounter) count(texts []string) int {
	c.once.Do(func() {
		enc, err := c.load(c.model)
		if err != nil {
			c.logger.Warn("Token encoding unavailable, estimating by length",
				zap.String("model", c.model), zap.Error(err))
			return
		}
		c.enc = enc
	})

	n := 0
	for _, t := range texts {
		if c.enc != nil {
			n += len(c.enc.Encode(t, nil, nil))
			continue
		}
		n += (utf8.RuneCountInString(t) + 3) / 4
	}
	return n
}
