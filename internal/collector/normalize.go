// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package collector

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Qchains/gtelegram/internal/errs"
	"github.com/Qchains/gtelegram/internal/memory"
)

const commentMarker = "//"

// Payload keys understood by the collector
const (
	keyStage        = "stage"
	keyIdentity     = "identity"
	keyState        = "state"
	keyQuery        = "query"
	keyMemory       = "memory"
	keyPartialState = "partial_state"
	keyError        = "error"
)

// Content size limits applied to every candidate line
const (
	maxLabelLen = 256
	maxTextLen  = 64 * 1024
	maxNotes    = 256
)

// StripComments removes everything from a "//" marker to the end of each line,
// along with the whitespace left in front of it. Applying it twice is the same as once.
func StripComments(s string) string {
	if !strings.Contains(s, commentMarker) {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if idx := strings.Index(l, commentMarker); idx >= 0 {
			lines[i] = strings.TrimRight(l[:idx], " \t\r")
		}
	}
	return strings.Join(lines, "\n")
}

// stripValue applies StripComments to every string inside v
func stripValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return StripComments(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = stripValue(e)
		}
		return out
	case []string:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = StripComments(e)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, e := range t {
			out[k] = stripValue(e)
		}
		return out
	default:
		return v
	}
}

// decode turns a raw item into the payload map kept in the buffer
func decode(item memory.RawItem, cfg Config) (map[string]interface{}, error) {
	if item.Payload != nil {
		payload := make(map[string]interface{}, len(item.Payload))
		for k, v := range item.Payload {
			if cfg.CommentStrip {
				v = stripValue(v)
			}
			payload[k] = v
		}
		return payload, nil
	}

	text := item.Text
	if cfg.CommentStrip {
		text = StripComments(text)
	}
	text = strings.TrimSpace(text)

	if text == "" {
		return map[string]interface{}{}, nil
	}
	if !strings.HasPrefix(text, "{") {
		return map[string]interface{}{keyQuery: text}, nil
	}

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		if cfg.StrictMode {
			return nil, errs.Validation("payload is not a valid JSON object").
				WithField("text", err.Error())
		}
		return map[string]interface{}{
			keyPartialState: text,
			keyError:        err.Error(),
		}, nil
	}
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return payload, nil
}

// candidate is the validated shape of a line before it reaches the store
type candidate struct {
	Stage    string   `json:"stage" validate:"required,max=256"`
	Identity string   `json:"identity" validate:"required,max=256"`
	State    string   `json:"state" validate:"required,max=65536"`
	Memory   []string `json:"memory" validate:"max=256,dive,max=65536"`
}

type defaults struct {
	stage    string
	identity string
	state    string
}

var modeDefaults = map[memory.Mode]defaults{
	memory.ModeIntrospect: {
		stage:    memory.StageIntrospection,
		identity: "flo_core.mirror",
		state:    "traversal_active",
	},
	memory.ModePromiseChain: {
		stage:    memory.StagePromiseChain,
		identity: "Flo-integrated Nexus",
		state:    "completed",
	},
}

// contentKeys lists the payload keys accepted as the line's state, in priority order
func contentKeys(mode memory.Mode, strict bool) []string {
	keys := []string{keyState}
	if mode == memory.ModeIntrospect {
		keys = append(keys, keyQuery)
	}
	if !strict {
		keys = append(keys, keyPartialState)
	}
	return keys
}

// buildStrict rejects payloads with missing content or wrongly typed fields
func buildStrict(payload map[string]interface{}, mode memory.Mode) (candidate, error) {
	verr := errs.Validation("malformed " + string(mode) + " payload")
	def := modeDefaults[mode]
	c := candidate{Stage: def.stage, Identity: def.identity}

	for _, key := range []string{keyStage, keyIdentity, keyState, keyQuery} {
		if v, ok := payload[key]; ok {
			if _, isString := v.(string); !isString {
				verr.WithField(key, "must be a string")
			}
		}
	}

	if s, ok := payload[keyStage].(string); ok && s != "" {
		c.Stage = s
	}
	if s, ok := payload[keyIdentity].(string); ok && s != "" {
		c.Identity = s
	}
	for _, key := range contentKeys(mode, true) {
		if s, ok := payload[key].(string); ok && strings.TrimSpace(s) != "" {
			c.State = s
			break
		}
	}

	if raw, ok := payload[keyMemory]; ok {
		notes, valid := stringList(raw)
		if !valid {
			verr.WithField(keyMemory, "must be a list of strings")
		}
		c.Memory = notes
	}

	c.sanitize()
	if c.State == "" {
		if _, typed := verr.Fields[keyState]; !typed {
			verr.WithField(keyState, "is required")
		}
	}

	if len(verr.Fields) > 0 {
		return candidate{}, verr
	}
	if err := validate.Struct(c); err != nil {
		return candidate{}, fieldErrors("malformed "+string(mode)+" payload", err)
	}
	return c, nil
}

// buildLenient fills defaults and coerces whatever it can
func buildLenient(payload map[string]interface{}, mode memory.Mode) candidate {
	def := modeDefaults[mode]
	c := candidate{Stage: def.stage, Identity: def.identity, State: def.state}

	if s, ok := coerce(payload[keyStage]); ok && s != "" {
		c.Stage = s
	}
	if s, ok := coerce(payload[keyIdentity]); ok && s != "" {
		c.Identity = s
	}
	for _, key := range contentKeys(mode, false) {
		if s, ok := coerce(payload[key]); ok && strings.TrimSpace(s) != "" {
			c.State = s
			break
		}
	}

	switch raw := payload[keyMemory].(type) {
	case nil:
	case []interface{}:
		for _, e := range raw {
			if s, ok := coerce(e); ok {
				c.Memory = append(c.Memory, s)
			}
		}
	case []string:
		c.Memory = append(c.Memory, raw...)
	default:
		if s, ok := coerce(raw); ok {
			c.Memory = append(c.Memory, s)
		}
	}

	c.sanitize()
	if c.Stage == "" {
		c.Stage = def.stage
	}
	if c.Identity == "" {
		c.Identity = def.identity
	}
	if c.State == "" {
		c.State = def.state
	}

	c.Stage = memory.Truncate(c.Stage, maxLabelLen)
	c.Identity = memory.Truncate(c.Identity, maxLabelLen)
	c.State = memory.Truncate(c.State, maxTextLen)
	if len(c.Memory) > maxNotes {
		c.Memory = c.Memory[:maxNotes]
	}
	for i, note := range c.Memory {
		c.Memory[i] = memory.Truncate(note, maxTextLen)
	}
	return c
}

// stringList reports whether v is a list made only of strings
func stringList(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...), true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// coerce renders a decoded JSON value as text; nil is skipped
func coerce(v interface{}) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case bool, float64, float32, int, int64, json.Number:
		return fmt.Sprint(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// sanitize removes control characters and drops empty notes
func (c *candidate) sanitize() {
	c.Stage = memory.SanitizeText(c.Stage)
	c.Identity = memory.SanitizeText(c.Identity)
	c.State = memory.SanitizeText(c.State)
	notes := make([]string, 0, len(c.Memory))
	for _, n := range c.Memory {
		if n = memory.SanitizeText(n); n != "" {
			notes = append(notes, n)
		}
	}
	c.Memory = notes
}
