package client

import (
	"context"
	"sync"
)

// Prompter asks the user for a name. ok is false when the user cancelled.
type Prompter interface {
	Prompt(ctx context.Context, message string) (answer string, ok bool)
}

// PromptFunc adapts a function to the Prompter interface.
type PromptFunc func(ctx context.Context, message string) (string, bool)

func (f PromptFunc) Prompt(ctx context.Context, message string) (string, bool) {
	return f(ctx, message)
}

// QueuedPrompter answers prompts from a queue filled in advance, so a front
// end can collect the name first and dispatch afterwards. An empty queue
// cancels the prompt.
type QueuedPrompter struct {
	mu       sync.Mutex
	answers  []string
	messages []string
}

// Push queues an answer for the next prompt.
func (q *QueuedPrompter) Push(answer string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.answers = append(q.answers, answer)
}

func (q *QueuedPrompter) Prompt(_ context.Context, message string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.messages = append(q.messages, message)
	if len(q.answers) == 0 {
		return "", false
	}
	answer := q.answers[0]
	q.answers = q.answers[1:]
	return answer, true
}

// Messages returns the prompts shown so far.
func (q *QueuedPrompter) Messages() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.messages...)
}
