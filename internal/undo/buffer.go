// Package undo keeps the per-chat history of committed balance adjustments
// so the latest one can be reverted.
package undo

import (
	"sync"

	"gitlab.com/yelinaung/dsw-limit-bot/internal/models"
)

// Buffer is a bounded LIFO stack of adjustments per chat. It is safe for
// concurrent use. Contents are lost on restart.
type Buffer struct {
	mu       sync.Mutex
	maxDepth int
	stacks   map[string][]models.Adjustment
}

// New creates a Buffer keeping at most maxDepth adjustments per chat.
// A non-positive maxDepth means unbounded.
func New(maxDepth int) *Buffer {
	return &Buffer{
		maxDepth: maxDepth,
		stacks:   make(map[string][]models.Adjustment),
	}
}

// Push records a committed adjustment and returns the chat's new depth.
// When the stack is full the oldest entry is discarded.
func (b *Buffer) Push(chatID string, adj models.Adjustment) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	stack := append(b.stacks[chatID], adj)
	if b.maxDepth > 0 && len(stack) > b.maxDepth {
		stack = append([]models.Adjustment(nil), stack[len(stack)-b.maxDepth:]...)
	}
	b.stacks[chatID] = stack
	return len(stack)
}

// Pop removes and returns the chat's latest adjustment.
func (b *Buffer) Pop(chatID string) (models.Adjustment, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	stack := b.stacks[chatID]
	if len(stack) == 0 {
		return models.Adjustment{}, false
	}

	adj := stack[len(stack)-1]
	if len(stack) == 1 {
		delete(b.stacks, chatID)
	} else {
		b.stacks[chatID] = stack[:len(stack)-1]
	}
	return adj, true
}

// Len returns the number of adjustments recorded for a chat.
func (b *Buffer) Len(chatID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.stacks[chatID])
}

// Clear drops the chat's history.
func (b *Buffer) Clear(chatID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.stacks, chatID)
}
