package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/lehigh-university-libraries/quizocr/internal/models"
)

// Options decodes an option list returned by a model. Models return either
// plain strings (keyed by position) or {key, text} objects.
type Options []models.Option

func (o *Options) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("options must be a list: %w", err)
	}

	out := make(Options, 0, len(raw))
	for i, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var text string
			if err := json.Unmarshal(item, &text); err != nil {
				return err
			}
			out = append(out, models.Option{Key: strconv.Itoa(i + 1), Text: text})
			continue
		}

		var opt struct {
			Key  json.RawMessage `json:"key"`
			Text string          `json:"text"`
		}
		if err := json.Unmarshal(item, &opt); err != nil {
			return fmt.Errorf("option %d: %w", i+1, err)
		}
		key := strconv.Itoa(i + 1)
		if len(opt.Key) > 0 {
			var ref models.QuestionRef
			if err := ref.UnmarshalJSON(opt.Key); err == nil && ref != "" {
				key = string(ref)
			}
		}
		out = append(out, models.Option{Key: key, Text: opt.Text})
	}
	*o = out
	return nil
}

// Texts returns the option texts in order.
func (o Options) Texts() []string {
	texts := make([]string, len(o))
	for i, opt := range o {
		texts[i] = opt.Text
	}
	return texts
}
