// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package prompts holds the canned text of a study session: the system
// preamble for general chat, the greeting every conversation starts with,
// and the quick actions offered on an empty conversation.
package prompts

import (
	"fmt"
	"strings"
)

// SystemPrompt guides the general model. It is prepended to history on the
// general path only; the grounded backend builds its own prompt.
const SystemPrompt = `You are an expert AI study assistant for an exam preparation platform. Your role is to help students prepare for competitive exams by:

1. Explaining complex concepts in simple, easy-to-understand language
2. Solving problems step-by-step with clear explanations
3. Providing study tips and effective learning strategies
4. Answering questions across various subjects (Math, Physics, Chemistry, Biology, History, English, etc.)
5. Creating practice questions and quizzes when requested
6. Offering motivation and study schedule suggestions

Guidelines:
- Be encouraging and supportive
- Use examples and analogies to clarify difficult concepts
- Break down complex problems into manageable steps
- Provide accurate, educational content
- If you're unsure about something, acknowledge it
- Keep responses focused and relevant to exam preparation
- Use formatting like bullet points and numbered lists when appropriate

Remember: You're helping students succeed in their exams!`

// Greeting is the seed message of every conversation.
const Greeting = "Hello! I'm your AI study assistant powered by Mistral AI. " +
	"Upload a PDF study material to get started, or ask me any general exam preparation questions!"

// ErrorPrefix starts every errored assistant message.
const ErrorPrefix = "Sorry, I encountered an error"

// ErrorReply formats the assistant text shown when a turn fails.
func ErrorReply(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return ErrorPrefix + ". Please try again."
	}
	return fmt.Sprintf("%s: %s. Please try again.", ErrorPrefix, strings.TrimRight(detail, "."))
}

// StoppedReply replaces an answer the user stopped.
const StoppedReply = "Answer stopped. Ask again whenever you're ready."

// QuickAction is a canned question offered while the conversation is empty.
type QuickAction struct {
	Label  string
	Prompt string
}

// QuickActions returns the canned questions in display order.
func QuickActions() []QuickAction {
	return []QuickAction{
		{Label: "Explain a concept", Prompt: "Can you explain Newton's laws of motion in simple terms?"},
		{Label: "Solve a problem", Prompt: "Help me solve: What is the derivative of x^2 + 3x + 2?"},
		{Label: "Study tips", Prompt: "Give me effective study tips for preparing for competitive exams"},
	}
}
