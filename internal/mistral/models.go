// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mistral

import (
	"fmt"
	"sort"
	"strings"
)

// =============================================================================
// MODEL INFO TYPE
// =============================================================================

// ModelInfo describes a Mistral chat model for display and config checks.
type ModelInfo struct {
	// ID is the model identifier used in API calls
	ID string `json:"id"`

	// Name is the human-readable display name
	Name string `json:"name"`

	// Tier categorizes the model's capability level
	Tier string `json:"tier"`

	// ContextWindow is the maximum context size in tokens
	ContextWindow int `json:"context_window"`

	Description string `json:"description"`
}

// =============================================================================
// MODEL REGISTRY
// =============================================================================

// Models is the registry of known Mistral chat models keyed by short name.
var Models = map[string]ModelInfo{
	"large": {
		ID:            "mistral-large-latest",
		Name:          "Mistral Large",
		Tier:          "Powerful",
		ContextWindow: 128000,
		Description:   "Best reasoning, default for explanations and problem solving",
	},
	"medium": {
		ID:            "mistral-medium-latest",
		Name:          "Mistral Medium",
		Tier:          "Balanced",
		ContextWindow: 128000,
		Description:   "Good quality at lower cost",
	},
	"small": {
		ID:            "mistral-small-latest",
		Name:          "Mistral Small",
		Tier:          "Fast",
		ContextWindow: 32000,
		Description:   "Quick answers and study tips",
	},
	"tiny": {
		ID:            "open-mistral-7b",
		Name:          "Mistral 7B",
		Tier:          "Fast",
		ContextWindow: 32000,
		Description:   "Smallest open model",
	},
}

// ContextString returns a formatted context window string.
func (m ModelInfo) ContextString() string {
	if m.ContextWindow >= 1000 {
		return fmt.Sprintf("%dK tokens", m.ContextWindow/1000)
	}
	return fmt.Sprintf("%d tokens", m.ContextWindow)
}

// TierIcon returns an icon character for the model tier.
func (m ModelInfo) TierIcon() string {
	switch m.Tier {
	case "Fast":
		return "z"
	case "Balanced":
		return "~"
	case "Powerful":
		return "&"
	default:
		return "?"
	}
}

// =============================================================================
// MODEL LOOKUP FUNCTIONS
// =============================================================================

// GetModelInfo looks up a model by short name or API ID.
func GetModelInfo(nameOrID string) (ModelInfo, bool) {
	if info, ok := Models[strings.ToLower(nameOrID)]; ok {
		return info, true
	}
	for _, info := range Models {
		if info.ID == nameOrID {
			return info, true
		}
	}
	return ModelInfo{}, false
}

// ResolveModel maps a short name to its API ID. Unknown names pass through
// unchanged so newly released models can be used without a registry update.
func ResolveModel(nameOrID string) string {
	if info, ok := GetModelInfo(nameOrID); ok {
		return info.ID
	}
	return nameOrID
}

// ModelShortNames returns a sorted slice of all model short names.
func ModelShortNames() []string {
	names := make([]string, 0, len(Models))
	for name := range Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
