package api

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// NotificationType identifies the kind of event published on a job.
type NotificationType string

const (
	// NotifyCancel asks the runner to stop starting new items
	NotifyCancel NotificationType = "CANCEL"
	// NotifyResult carries a Result of a completed item
	NotifyResult NotificationType = "RESULT"
	// NotifyProgress carries a Progress update of a running item
	NotifyProgress NotificationType = "PROGRESS"
	// NotifyMetric carries a MetricEntry, and is broadcast as a MetricGroup
	NotifyMetric NotificationType = "METRIC"
	// NotifyMeta carries a Meta update of the job
	NotifyMeta NotificationType = "META"
)

// Subscriber receives the payloads of one notification type.
type Subscriber func(payload any)

// Well known context keys.
const (
	KeyFileName  = "$fileName"
	KeyBaseDir   = "$baseDir"
	KeyLoader    = "$loader"
	KeyResults   = "$results"
	KeyRole      = "role"
	KeyStopAfter = "stopAfter"
)

// DefaultRole is assumed for items whose context has no role.
const DefaultRole = "test"

// Context is the inherited configuration of an item.
type Context map[string]any

// Clone returns a shallow copy of c. A nil context clones to an empty one.
func (c Context) Clone() Context {
	out := make(Context, len(c))
	maps.Copy(out, c)
	return out
}

// With returns a copy of c with the given key set.
func (c Context) With(key string, value any) Context {
	out := c.Clone()
	out[key] = value
	return out
}

// String returns the value of key if it is a string.
func (c Context) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Definition is an item as written in a scenario file, before preprocessing.
type Definition map[string]any

// String returns the value of key if it is a string.
func (d Definition) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Map returns the value of key if it is a map.
func (d Definition) Map(key string) map[string]any {
	return AsMap(d[key])
}

// Clone returns a shallow copy of d.
func (d Definition) Clone() Definition {
	out := make(Definition, len(d))
	maps.Copy(out, d)
	return out
}

// AsMap converts the map shapes produced by the YAML and JSON decoders to map[string]any.
// Other values yield nil.
func AsMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case Definition:
		return m
	case Context:
		return m
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out
	}
	return nil
}

// Item is a preprocessed, executable scenario item.
type Item struct {
	// ID is unique within the loader that preprocessed the item
	ID int
	// Type selects the plugin that runs the item
	Type string
	// Name identifies the item in $results, "$<type>-<id>" when not given
	Name string
	// Description is a human readable summary of what the item does
	Description string
	// Context is the resolved configuration inherited by the item
	Context Context
	// Items holds preprocessed children of container items
	Items []Item
	// Props holds every other property of the definition, including ":" expressions
	Props Definition
}

// MarshalJSON flattens the properties into the item object.
func (it Item) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(it.Props)+6)
	maps.Copy(out, it.Props)
	out["$id"] = it.ID
	out["type"] = it.Type
	out["name"] = it.Name
	if it.Description != "" {
		out["description"] = it.Description
	}
	out["context"] = it.Context
	if it.Items != nil {
		out["items"] = it.Items
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the flattened form written by MarshalJSON.
func (it *Item) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fixed := map[string]any{
		"$id":         &it.ID,
		"type":        &it.Type,
		"name":        &it.Name,
		"description": &it.Description,
		"context":     &it.Context,
		"items":       &it.Items,
	}
	it.Props = Definition{}
	for key, value := range raw {
		target, ok := fixed[key]
		if !ok {
			var v any
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("property %q: %w", key, err)
			}
			it.Props[key] = v
			continue
		}
		if err := json.Unmarshal(value, target); err != nil {
			return fmt.Errorf("property %q: %w", key, err)
		}
	}
	return nil
}

// IsPreprocessed reports whether a decoded JSON object looks like a serialized
// Item rather than a raw definition.
func IsPreprocessed(def Definition) bool {
	_, hasID := def["$id"]
	_, hasContext := def["context"]
	return hasID && hasContext
}

// Subject identifies the item a result belongs to.
type Subject struct {
	ID          int    `json:"$id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Role        string `json:"role"`
	SourceFile  string `json:"sourceFile"`
	Type        string `json:"type"`
}

// Result is produced exactly once for every item that was run or skipped.
type Result struct {
	Subject    Subject   `json:"subject"`
	Outcome    Outcome   `json:"outcome"`
	StartTime  time.Time `json:"startTime"`
	DurationMs float64   `json:"durationMs"`
	Message    string    `json:"message"`
	Failures   []string  `json:"failures"`
	Errors     []string  `json:"errors"`
	// Fields holds plugin specific data such as "actual" or "response"
	Fields map[string]any `json:"-"`
	// Nested is only populated in result trees
	Nested []Result `json:"nested,omitempty"`
}

type resultAlias Result

// MarshalJSON flattens the plugin fields into the result object.
func (r Result) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(resultAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Fields) == 0 {
		return base, nil
	}
	out := map[string]json.RawMessage{}
	for k, v := range r.Fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = raw
	}
	var fixed map[string]json.RawMessage
	if err := json.Unmarshal(base, &fixed); err != nil {
		return nil, err
	}
	maps.Copy(out, fixed)
	return json.Marshal(out)
}

// Value returns the result as plain data, the way expressions see it through $results.
func (r Result) Value() map[string]any {
	out := make(map[string]any, len(r.Fields)+7)
	maps.Copy(out, r.Fields)
	out["subject"] = map[string]any{
		"$id":         r.Subject.ID,
		"name":        r.Subject.Name,
		"description": r.Subject.Description,
		"role":        r.Subject.Role,
		"sourceFile":  r.Subject.SourceFile,
		"type":        r.Subject.Type,
	}
	out["outcome"] = string(r.Outcome)
	out["startTime"] = r.StartTime
	out["durationMs"] = r.DurationMs
	out["message"] = r.Message
	out["failures"] = append([]string{}, r.Failures...)
	out["errors"] = append([]string{}, r.Errors...)
	return out
}

// Partial is what a plugin hook contributes to a Result. Zero fields keep the defaults.
type Partial struct {
	Outcome  Outcome
	Message  string
	Failures []string
	Errors   []string
	Fields   map[string]any
}

// Meta describes a job.
type Meta struct {
	ID       string     `json:"id"`
	Created  time.Time  `json:"created"`
	Started  time.Time  `json:"started"`
	Finished *time.Time `json:"finished"`
	Outcome  Outcome    `json:"outcome,omitempty"`
}

// Done reports whether the job has finished.
func (m Meta) Done() bool {
	return m.Finished != nil
}

// Progress is the completion estimate of a running item, between 0 and 1.
type Progress struct {
	ID       int       `json:"$id"`
	Started  time.Time `json:"started"`
	Progress float64   `json:"progress"`
}

// MetricEntry is a single measurement published by an item.
type MetricEntry struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	ID         int    `json:"id"`
	Label      string `json:"label"`
	MetricType string `json:"metricType"`
	Value      any    `json:"value"`
	// Category groups entries, it is not repeated in each entry
	Category string `json:"-"`
}

// MetricGroup holds every entry published under a category so far.
type MetricGroup struct {
	Category string        `json:"category"`
	Entries  []MetricEntry `json:"metrics"`
}
