package types

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Validation errors
var (
	ErrEmptyID          = errors.New("id cannot be empty")
	ErrEmptySource      = errors.New("edge source cannot be empty")
	ErrEmptyTarget      = errors.New("edge target cannot be empty")
	ErrInvalidLimit     = errors.New("limit must be positive")
	ErrInvalidQueryMode = errors.New("invalid query mode")
)

// Record is a single KV store value: an ordered-by-key mapping of field name to value.
type Record map[string]any

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// QueryMode selects the retrieval strategy used by the query collaborator.
type QueryMode string

const (
	// LocalQueryMode retrieves around entities matched by low-level keywords.
	LocalQueryMode QueryMode = "local"
	// GlobalQueryMode retrieves around relations matched by high-level keywords.
	GlobalQueryMode QueryMode = "global"
	// HybridQueryMode combines local and global retrieval.
	HybridQueryMode QueryMode = "hybrid"
	// NaiveQueryMode performs plain chunk similarity search.
	NaiveQueryMode QueryMode = "naive"
)

var validQueryModes = map[QueryMode]struct{}{
	LocalQueryMode:  {},
	GlobalQueryMode: {},
	HybridQueryMode: {},
	NaiveQueryMode:  {},
}

// QueryModes returns every supported mode in sorted order.
func QueryModes() []QueryMode {
	modes := make([]QueryMode, 0, len(validQueryModes))
	for m := range validQueryModes {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// Valid reports whether m is one of the supported modes.
func (m QueryMode) Valid() bool {
	_, ok := validQueryModes[m]
	return ok
}

// ParseQueryMode converts s into a QueryMode. Unknown values return an error
// wrapping ErrInvalidQueryMode that names the accepted values.
func ParseQueryMode(s string) (QueryMode, error) {
	m := QueryMode(strings.TrimSpace(s))
	if m.Valid() {
		return m, nil
	}
	names := make([]string, 0, len(validQueryModes))
	for _, v := range QueryModes() {
		names = append(names, string(v))
	}
	return "", fmt.Errorf("%w: %q (supported: %s)", ErrInvalidQueryMode, s, strings.Join(names, ", "))
}

// QueryParam holds the per-query options handed to the retrieval collaborator.
type QueryParam struct {
	Mode            QueryMode `json:"mode" mapstructure:"mode"`
	OnlyNeedContext bool      `json:"only_need_context" mapstructure:"only_need_context"`
	OnlyNeedPrompt  bool      `json:"only_need_prompt" mapstructure:"only_need_prompt"`
	ResponseType    string    `json:"response_type" mapstructure:"response_type"`
	Stream          bool      `json:"stream" mapstructure:"stream"`
	// TopK is the number of entities/relations retrieved per vector query.
	TopK int `json:"top_k" mapstructure:"top_k"`

	MaxTokenForTextUnit      int `json:"max_token_for_text_unit" mapstructure:"max_token_for_text_unit"`
	MaxTokenForGlobalContext int `json:"max_token_for_global_context" mapstructure:"max_token_for_global_context"`
	MaxTokenForLocalContext  int `json:"max_token_for_local_context" mapstructure:"max_token_for_local_context"`
}

// DefaultQueryParam returns the defaults used when the caller leaves fields unset.
func DefaultQueryParam() QueryParam {
	return QueryParam{
		Mode:                     HybridQueryMode,
		ResponseType:             "Multiple Paragraphs",
		TopK:                     40,
		MaxTokenForTextUnit:      4000,
		MaxTokenForGlobalContext: 3000,
		MaxTokenForLocalContext:  5000,
	}
}

// Validate checks the mode and limits before any storage access happens.
func (p *QueryParam) Validate() error {
	if _, err := ParseQueryMode(string(p.Mode)); err != nil {
		return err
	}
	if p.TopK <= 0 {
		return ErrInvalidLimit
	}
	return nil
}
