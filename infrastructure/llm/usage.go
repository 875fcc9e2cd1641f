package llm

import "github.com/andratr/bmtool1/domain"

// tokenUsage converts provider counts into domain.Usage. Providers report
// zero for counts they do not track, so zero means absent.
func tokenUsage(prompt, completion int64) *domain.Usage {
	u := &domain.Usage{}
	if prompt > 0 {
		u.PromptTokens = domain.IntPtr(int(prompt))
	}
	if completion > 0 {
		u.CompletionTokens = domain.IntPtr(int(completion))
	}
	if u.PromptTokens == nil && u.CompletionTokens == nil {
		return nil
	}
	return u
}

// generationInfoUsage reads the token counts langchaingo backends put in
// a choice's GenerationInfo.
func generationInfoUsage(info map[string]any) *domain.Usage {
	return tokenUsage(infoInt(info, "PromptTokens"), infoInt(info, "CompletionTokens"))
}

func infoInt(info map[string]any, key string) int64 {
	switch v := info[key].(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}
