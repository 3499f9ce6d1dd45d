package llm

import "sync/atomic"

// Accountant tracks token consumption across every model call in the
// process. It replaces ambient per-session counters with an explicit object
// injected into the client; increments are atomic so concurrent
// conversations can share one instance.
type Accountant struct {
	budget     int64
	prompt     atomic.Int64
	completion atomic.Int64
	total      atomic.Int64
}

type UsageSnapshot struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	Budget           int64 `json:"budget"`
}

func NewAccountant(budget int64) *Accountant {
	return &Accountant{budget: budget}
}

func (a *Accountant) Add(promptTokens, completionTokens, totalTokens int) {
	if a == nil {
		return
	}
	a.prompt.Add(int64(promptTokens))
	a.completion.Add(int64(completionTokens))
	a.total.Add(int64(totalTokens))
}

func (a *Accountant) Snapshot() UsageSnapshot {
	return UsageSnapshot{
		PromptTokens:     a.prompt.Load(),
		CompletionTokens: a.completion.Load(),
		TotalTokens:      a.total.Load(),
		Budget:           a.budget,
	}
}

// Exceeded reports whether the configured budget has been spent. A zero
// budget means unlimited.
func (a *Accountant) Exceeded() bool {
	return a.budget > 0 && a.total.Load() >= a.budget
}

func (a *Accountant) Reset() {
	a.prompt.Store(0)
	a.completion.Store(0)
	a.total.Store(0)
}
