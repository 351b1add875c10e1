package ir

// Part represents a polymorphic segment of message content. Concrete part
// types implement the unexported isPart marker enabling a closed set.
type Part interface{ isPart() }

// TextPart is a plain text content segment.
type TextPart struct {
	Text string `json:"text"`
}

// isPart implements the Part interface for TextPart.
func (TextPart) isPart() {}

// ImagePart is an image content segment, either inlined (base64) or referenced
// by URL. MimeType is a hint for backends that require one.
type ImagePart struct {
	Data     string `json:"data,omitempty"` // Base64 encoded contents (if inlined)
	URL      string `json:"url,omitempty"`  // External retrieval URL (if not inlined)
	MimeType string `json:"mime_type,omitempty"`
}

// isPart implements the Part interface for ImagePart.
func (ImagePart) isPart() {}

// ToolUsePart is a tool/function invocation requested by the model.
// Arguments is the serialized argument payload (JSON), possibly assembled
// from streamed fragments.
type ToolUsePart struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
}

// isPart implements the Part interface for ToolUsePart.
func (ToolUsePart) isPart() {}

// Text concatenates all text parts of a message in order. Non-text parts are
// skipped.
func Text(parts []Part) string {
	var out string
	for _, p := range parts {
		if tp, ok := p.(TextPart); ok {
			out += tp.Text
		}
	}
	return out
}
