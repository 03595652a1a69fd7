// =============================================================================
// AgentWall OpenAI-Compatible Wire Types
// =============================================================================
// Request/response shapes for the chat-completions surface. The gateway is a
// pass-through proxy: fields it does not govern are preserved verbatim in
// Extra and re-emitted when the body is forwarded upstream. AgentWall
// extension fields (agentwall_*) are parsed out and stripped before
// forwarding.
// =============================================================================

package llm

import "encoding/json"

// Message is a single chat message. Role and Content are typed for the
// firewall's use; a content value that is not a plain string (an explicit
// null on assistant tool-call messages, or a content-part array) is carried
// verbatim in RawContent, and every other field (name, tool_calls,
// tool_call_id, function_call, ...) rides through Extra untouched.
type Message struct {
	Role    string
	Content string

	// RawContent is the wire form of the content value when the body carried
	// one. Re-emitted as-is unless the content was a string, in which case
	// Content (possibly rewritten by the firewall) wins.
	RawContent json.RawMessage

	// Extra holds all other per-message fields verbatim.
	Extra map[string]json.RawMessage
}

// UnmarshalJSON lifts role and string content into typed fields and keeps
// everything else byte-for-byte.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role, m.Content, m.RawContent, m.Extra = "", "", nil, nil
	for key, val := range raw {
		switch key {
		case "role":
			if err := json.Unmarshal(val, &m.Role); err != nil {
				return err
			}
		case "content":
			m.RawContent = val
			if len(val) > 0 && val[0] == '"' {
				if err := json.Unmarshal(val, &m.Content); err != nil {
					return err
				}
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]json.RawMessage)
			}
			m.Extra[key] = val
		}
	}
	return nil
}

// MarshalJSON re-emits the message as received. String content re-encodes
// from Content so DLP rewrites are reflected; null and content-part arrays
// pass through RawContent verbatim.
func (m Message) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	for key, val := range m.Extra {
		out[key] = val
	}
	out["role"] = m.Role
	switch {
	case len(m.RawContent) > 0 && m.RawContent[0] != '"':
		out["content"] = m.RawContent
	case len(m.RawContent) > 0 || m.Content != "":
		out["content"] = m.Content
	}
	return json.Marshal(out)
}

// ChatCompletionRequest is an incoming chat-completions body.
//
// Known fields are typed; everything else round-trips through Extra so the
// proxied body stays faithful to what the caller sent.
type ChatCompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`

	// AgentWall extension fields. Stripped from the forwarded body.
	RunID    string         `json:"agentwall_run_id,omitempty"`
	AgentID  string         `json:"agentwall_agent_id,omitempty"`
	Metadata map[string]any `json:"agentwall_metadata,omitempty"`

	// Extra holds all other caller-supplied fields (temperature, top_p,
	// max_tokens, tools, ...) verbatim.
	Extra map[string]json.RawMessage `json:"-"`
}

// reqKnownKeys are the keys lifted out of the raw body into typed fields.
var reqKnownKeys = map[string]bool{
	"model":              true,
	"messages":           true,
	"stream":             true,
	"agentwall_run_id":   true,
	"agentwall_agent_id": true,
	"agentwall_metadata": true,
}

// UnmarshalJSON splits the body into typed fields and pass-through Extra.
func (r *ChatCompletionRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type known struct {
		Model    string         `json:"model"`
		Messages []Message      `json:"messages"`
		Stream   bool           `json:"stream"`
		RunID    string         `json:"agentwall_run_id"`
		AgentID  string         `json:"agentwall_agent_id"`
		Metadata map[string]any `json:"agentwall_metadata"`
	}
	var k known
	if err := json.Unmarshal(data, &k); err != nil {
		return err
	}

	r.Model = k.Model
	r.Messages = k.Messages
	r.Stream = k.Stream
	r.RunID = k.RunID
	r.AgentID = k.AgentID
	r.Metadata = k.Metadata

	r.Extra = make(map[string]json.RawMessage)
	for key, val := range raw {
		if !reqKnownKeys[key] {
			r.Extra[key] = val
		}
	}
	return nil
}

// ForwardBody serializes the request for the upstream call: typed fields plus
// Extra, with all agentwall_* extension fields dropped. model is overridden
// with the resolved name when an alias was used.
func (r *ChatCompletionRequest) ForwardBody(resolvedModel string) ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+3)
	for key, val := range r.Extra {
		out[key] = val
	}
	out["model"] = resolvedModel
	out["messages"] = r.Messages
	if r.Stream {
		out["stream"] = true
	}
	return json.Marshal(out)
}

// LastUserContent returns the content of the last user message, falling back
// to the last message of any role. This is the "prompt" the firewall scans.
func (r *ChatCompletionRequest) LastUserContent() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == "user" {
			return r.Messages[i].Content
		}
	}
	if n := len(r.Messages); n > 0 {
		return r.Messages[n-1].Content
	}
	return ""
}

// =============================================================================
// Response types
// =============================================================================

// Usage is the token accounting block of an upstream response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// ChatCompletionResponse is an upstream chat-completions response. Unknown
// top-level fields are preserved in Extra and re-emitted to the caller.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

var respKnownKeys = map[string]bool{
	"id":      true,
	"object":  true,
	"created": true,
	"model":   true,
	"choices": true,
	"usage":   true,
}

// UnmarshalJSON splits the response into typed fields and pass-through Extra.
func (r *ChatCompletionResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type alias ChatCompletionResponse
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = ChatCompletionResponse(a)

	r.Extra = make(map[string]json.RawMessage)
	for key, val := range raw {
		if !respKnownKeys[key] {
			r.Extra[key] = val
		}
	}
	return nil
}

// MarshalJSON re-emits typed fields plus Extra.
func (r ChatCompletionResponse) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Extra)+6)
	for key, val := range r.Extra {
		out[key] = val
	}
	out["id"] = r.ID
	out["object"] = r.Object
	out["created"] = r.Created
	out["model"] = r.Model
	out["choices"] = r.Choices
	if r.Usage != nil {
		out["usage"] = r.Usage
	}
	return json.Marshal(out)
}

// AssistantContent returns the first choice's message content.
func (r *ChatCompletionResponse) AssistantContent() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// StreamDelta is a single frame of a streamed completion, decoded only far
// enough to account content characters and final usage.
type StreamDelta struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *Usage `json:"usage,omitempty"`
}
