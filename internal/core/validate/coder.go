package validate

import (
	"context"
	"strings"

	"github.com/expertatlas/atlas/internal/core/common"
	"github.com/expertatlas/atlas/internal/llm"
)

const defaultCountryCodePrompt = `Identify the country for the location below.
Respond with ONLY its ISO 3166-1 alpha-2 code (two uppercase letters).
If you cannot decide on a single country, respond with exactly "None".
Do not explain.

Location: %s`

// CodeOutcome is the tagged result of the ISO-code extraction step.
// Code is "None" whenever Resolved is false.
type CodeOutcome struct {
	Resolved bool
	Code     string
}

// CountryCoder asks a language model for the ISO 3166-1 alpha-2 code of a
// location mention. Every failure degrades to the unresolved outcome; the
// coder never surfaces an error to the validator.
type CountryCoder struct {
	LLM    llm.LLMClient
	Prompt string
}

func NewCountryCoder(llmClient llm.LLMClient, prompt string) *CountryCoder {
	if prompt == "" {
		prompt = defaultCountryCodePrompt
	}
	return &CountryCoder{
		LLM:    llmClient,
		Prompt: prompt,
	}
}

// ExtractCode returns the model's verdict for text. Responses other than
// a bare alpha-2 code pass through uncleaned apart from whitespace and
// quote trimming; the validator's decision table treats anything longer
// than two characters as an unusable answer.
func (c *CountryCoder) ExtractCode(ctx context.Context, text string) CodeOutcome {
	unresolved := CodeOutcome{Resolved: false, Code: "None"}
	if c.LLM == nil {
		return unresolved
	}

	prompt := strings.Replace(c.Prompt, "%s", text, 1)
	response, err := c.LLM.Generate(ctx, prompt)
	if err != nil {
		return unresolved
	}

	code := strings.TrimSpace(response)

	// Some models wrap the answer in a JSON object despite the prompt.
	if strings.Contains(code, "{") {
		if fields, perr := common.ParseJSON[map[string]string](code); perr == nil {
			for _, key := range []string{"code", "countryCode", "country_code"} {
				if v, ok := fields[key]; ok {
					code = strings.TrimSpace(v)
					break
				}
			}
		}
	}

	code = strings.Trim(code, `"'.`)
	if code == "" || strings.EqualFold(code, "None") {
		return unresolved
	}
	if len(code) == 2 {
		code = strings.ToUpper(code)
	}

	return CodeOutcome{Resolved: true, Code: code}
}
