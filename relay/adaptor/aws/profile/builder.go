// Package profile maps Bedrock model ids to application inference profiles
// and resolves the identifier a request is finally sent with.
package profile

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Laisky/zap"
	"github.com/tidwall/gjson"

	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
)

// ProfilesJSONField is the human readable name of the configuration field holding the mapping.
const ProfilesJSONField = "Application Inference Profiles JSON"

// InvalidConfigurationError reports a mapping document that is not valid JSON.
type InvalidConfigurationError struct {
	Field string
	Err   error
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("Invalid JSON in %q credential field: %s", e.Field, e.Err.Error())
}

func (e *InvalidConfigurationError) Unwrap() error {
	return e.Err
}

// Entry associates one model id with one profile id. Both are trimmed and non-empty.
type Entry struct {
	ModelID   string `json:"model_id"`
	ProfileID string `json:"profile_id"`
}

// Map is an ordered set of entries. A nil *Map means no mapping is configured;
// a non-nil Map always holds at least one entry.
type Map struct {
	entries []Entry
}

// NewMap normalizes entries the same way BuildFromJSON does. Every surviving
// pair is kept, so a model id may appear more than once; Lookup uses the first.
func NewMap(entries ...Entry) *Map {
	m := &Map{}
	for _, e := range entries {
		m.add(e.ModelID, e.ProfileID)
	}
	if len(m.entries) == 0 {
		return nil
	}
	return m
}

func (m *Map) add(modelID, profileID string) bool {
	modelID = strings.TrimSpace(modelID)
	profileID = strings.TrimSpace(profileID)
	if modelID == "" || profileID == "" {
		return false
	}

	m.entries = append(m.entries, Entry{ModelID: modelID, ProfileID: profileID})
	return true
}

// Entries returns a copy of the entries in document order.
func (m *Map) Entries() []Entry {
	if m == nil {
		return nil
	}
	return append([]Entry(nil), m.entries...)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Lookup returns the profile id of the first entry for modelID. Matching is
// exact and case-sensitive.
func (m *Map) Lookup(modelID string) (string, bool) {
	if m == nil {
		return "", false
	}
	for _, e := range m.entries {
		if e.ModelID == modelID {
			return e.ProfileID, true
		}
	}
	return "", false
}

// ModelIDs lists the mapped model ids in document order, duplicates included.
func (m *Map) ModelIDs() []string {
	if m == nil {
		return nil
	}
	ids := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		ids = append(ids, e.ModelID)
	}
	return ids
}

// BuildFromJSON parses a `{"<modelId>": "<profileId>", ...}` document.
//
// It returns nil without error when the text is blank, when the document is not
// an object, or when no pair survives normalization. Non-string values and pairs
// that are empty after trimming are skipped. Keys that collide, before or after
// trimming, are all kept and the first one wins on lookup. Malformed JSON yields an
// *InvalidConfigurationError.
func BuildFromJSON(jsonText string) (*Map, error) {
	trimmed := strings.TrimSpace(jsonText)
	if trimmed == "" {
		return nil, nil
	}

	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return nil, &InvalidConfigurationError{Field: ProfilesJSONField, Err: err}
	}

	doc := gjson.Parse(trimmed)
	if !doc.IsObject() {
		logger.Logger.Debug("inference profile mapping is not an object, ignored",
			zap.String("type", doc.Type.String()))
		return nil, nil
	}

	m := &Map{}
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.Type != gjson.String {
			logger.Logger.Debug("skip inference profile entry with non-string value",
				zap.String("model_id", key.String()))
			return true
		}
		if !m.add(key.String(), value.String()) {
			logger.Logger.Debug("skip empty inference profile entry",
				zap.String("model_id", key.String()))
		}
		return true
	})

	if len(m.entries) == 0 {
		return nil, nil
	}
	return m, nil
}
