package llm

import (
	"math"
	"strings"
	"time"

	"github.com/k0sti/babble-sub000/pkg/types"
)

// DefaultTokenBudget and DefaultMessageCap are the context bounds used when
// a worker isn't given explicit overrides.
const (
	DefaultTokenBudget = 4000
	DefaultMessageCap  = 20
)

// EstimateTokens applies the length/word-count heuristic: the larger of a
// char-count/4 estimate and the word count, floored at 1.
func EstimateTokens(text string) int {
	chars := len([]rune(text))
	charEstimate := int(math.Ceil(float64(chars) / 4.0))
	words := len(strings.Fields(text))
	est := charEstimate
	if words > est {
		est = words
	}
	if est < 1 {
		est = 1
	}
	return est
}

type timedMessage struct {
	msg       types.Message
	tokens    int
	timestamp time.Time
}

// Context owns a conversation's system prompt and history, trimming oldest
// non-system messages first whenever an append pushes it past either bound.
type Context struct {
	systemPrompt string
	messages     []timedMessage
	tokenBudget  int
	messageCap   int
}

// NewContext returns a context with default bounds.
func NewContext(systemPrompt string) *Context {
	return &Context{
		systemPrompt: systemPrompt,
		tokenBudget:  DefaultTokenBudget,
		messageCap:   DefaultMessageCap,
	}
}

// NewContextWithBounds returns a context with explicit token/message bounds.
func NewContextWithBounds(systemPrompt string, tokenBudget, messageCap int) *Context {
	return &Context{
		systemPrompt: systemPrompt,
		tokenBudget:  tokenBudget,
		messageCap:   messageCap,
	}
}

func (c *Context) AddUserMessage(content string) {
	c.append(types.Message{Role: types.RoleUser, Content: content})
}

func (c *Context) AddAssistantMessage(content string) {
	c.append(types.Message{Role: types.RoleAssistant, Content: content})
}

func (c *Context) append(msg types.Message) {
	c.messages = append(c.messages, timedMessage{
		msg:       msg,
		tokens:    EstimateTokens(msg.Content),
		timestamp: Now(),
	})
	c.trim()
}

func (c *Context) trim() {
	for len(c.messages) > 0 && (len(c.messages) > c.messageCap || c.totalTokens() > c.tokenBudget) {
		c.messages = c.messages[1:]
	}
}

func (c *Context) totalTokens() int {
	total := EstimateTokens(c.systemPrompt)
	for _, m := range c.messages {
		total += m.tokens
	}
	return total
}

// Clear drops history, keeping the system prompt.
func (c *Context) Clear() {
	c.messages = nil
}

// Messages returns the system prompt followed by history, ready to hand to
// a Provider.
func (c *Context) Messages() []types.Message {
	out := make([]types.Message, 0, len(c.messages)+1)
	out = append(out, types.Message{Role: types.RoleSystem, Content: c.systemPrompt})
	for _, m := range c.messages {
		out = append(out, m.msg)
	}
	return out
}

func (c *Context) SystemPrompt() string { return c.systemPrompt }

func (c *Context) SetSystemPrompt(prompt string) { c.systemPrompt = prompt }

// MessageCount excludes the system prompt.
func (c *Context) MessageCount() int { return len(c.messages) }

// Now is a package-level var so tests can inject deterministic timestamps.
var Now = time.Now
