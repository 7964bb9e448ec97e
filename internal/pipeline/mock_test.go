package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/icp-research/internal/config"
	"github.com/sells-group/icp-research/internal/llm"
	"github.com/sells-group/icp-research/internal/memory"
	"github.com/sells-group/icp-research/internal/model"
	"github.com/sells-group/icp-research/internal/search"
)

// --- Completer Mock ---

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, task llm.TaskType, prompt string) (*llm.Completion, error) {
	args := m.Called(ctx, task, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.Completion), args.Error(1)
}

// --- Searcher Mock ---

type mockSearcher struct {
	mock.Mock
}

func (m *mockSearcher) Search(ctx context.Context, query string) ([]search.Result, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]search.Result), args.Error(1)
}

// --- Scripted Completer ---

// scriptedCompleter answers every task with canned text unless the task is
// listed in fail. It records each prompt it receives.
type scriptedCompleter struct {
	mu      sync.Mutex
	text    map[llm.TaskType]string
	fail    map[llm.TaskType]error
	prompts map[llm.TaskType][]string
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		text:    make(map[llm.TaskType]string),
		fail:    make(map[llm.TaskType]error),
		prompts: make(map[llm.TaskType][]string),
	}
}

func (c *scriptedCompleter) failTask(task llm.TaskType) *scriptedCompleter {
	c.fail[task] = &llm.ProviderError{Task: task, Provider: "anthropic", Err: llm.ErrNoProvider}
	return c
}

func (c *scriptedCompleter) Complete(_ context.Context, task llm.TaskType, prompt string) (*llm.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts[task] = append(c.prompts[task], prompt)
	if err, ok := c.fail[task]; ok {
		return nil, err
	}
	text, ok := c.text[task]
	if !ok {
		text = "Analysis for " + string(task) + ": customers are frustrated with hidden fees and looking for clarity."
	}
	return &llm.Completion{Text: text, Provider: "anthropic", Model: "test", InputTokens: 100, OutputTokens: 50}, nil
}

func (c *scriptedCompleter) lastPrompt(task llm.TaskType) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ps := c.prompts[task]
	if len(ps) == 0 {
		return ""
	}
	return ps[len(ps)-1]
}

func (c *scriptedCompleter) calls(task llm.TaskType) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts[task])
}

// --- Helpers ---

func newTestMemory() *memory.Store {
	return memory.Open(context.Background(), nil, memory.Options{Backend: "none"})
}

func newTestPipeline(t *testing.T, completer llm.Completer, mem *memory.Store, searcher search.Searcher) *Pipeline {
	t.Helper()
	p, err := New(config.DefaultStages, Deps{
		LLM:          completer,
		Memory:       mem,
		Searcher:     searcher,
		SearchConfig: config.SearchConfig{MaxQueries: 4, Concurrency: 2},
	})
	require.NoError(t, err)
	return p
}

func longText(prefix string, n int) string {
	return prefix + " " + strings.Repeat("x", n)
}

// stateWith builds a state whose analysis fields hold the given text.
func stateWith(fields map[model.Field]string) *model.ResearchState {
	s := model.NewResearchState("independent financial advisors", "", "")
	s.SessionID = "research_test"
	s.IndustryContext = "financial_services"
	s.MemoryContext = &model.MemoryContext{}
	for f, text := range fields {
		s.SetAnalysis(f, text)
	}
	return s
}
