// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package engine

import (
	"github.com/Qchains/gtelegram/internal/memory"
)

// Banner is the API root message
const Banner = "Pandora 5o Memory Engine - Flo-integrated Nexus Active"

// Portal describes the runtime and its endpoints
type Portal struct {
	Portal        string            `json:"portal"`
	Identity      string            `json:"identity"`
	Mode          string            `json:"mode"`
	RuntimeStatus Status            `json:"runtime_status"`
	Endpoints     map[string]string `json:"endpoints"`
}

// Portal returns the portal description
func (e *Engine) Portal() Portal {
	return Portal{
		Portal:        "Pandora 5o Runtime Portal",
		Identity:      "Flo-integrated Nexus",
		Mode:          "5o",
		RuntimeStatus: e.Status(),
		Endpoints: map[string]string{
			"start":     "/api/pandora/start",
			"stop":      "/api/pandora/stop",
			"status":    "/api/pandora/status",
			"query":     "/api/pandora/query",
			"promise":   "/api/pandora/promise",
			"memory":    "/api/pandora/memory",
			"snapshot":  "/api/pandora/snapshot",
			"snapshots": "/api/pandora/snapshots",
			"collector": "/api/pandora/collector",
			"config":    "/api/pandora/config",
		},
	}
}

// ConfigInfo exposes the runtime documents and constants
type ConfigInfo struct {
	Config           map[string]interface{} `json:"config"`
	MemoryReelStages int                    `json:"memory_reel_stages"`
	ContextWindow    int                    `json:"context_window"`
	// BreathInterval is in seconds
	BreathInterval float64      `json:"breath_interval"`
	SemanticTags   []memory.Tag `json:"semantic_tags"`
	Checkpoints    []string     `json:"checkpoints"`
}

// ConfigInfo returns the this-then document and runtime constants
func (e *Engine) ConfigInfo() ConfigInfo {
	return ConfigInfo{
		Config:           e.thenConfig,
		MemoryReelStages: len(e.reel),
		ContextWindow:    e.cfg.Runtime.ContextWindow,
		BreathInterval:   e.cfg.Runtime.BreathInterval().Seconds(),
		SemanticTags:     memory.Vocabulary(),
		Checkpoints:      append([]string{}, memory.Checkpoints...),
	}
}
