// Package commands turns chat messages into calls on the ledger engine and
// the relation registry and renders their results as text replies.
package commands

// ImageRef references an image attached to a chat message.
type ImageRef struct {
	FileID string `json:"file_id,omitempty" schema:"file_id"`
	URL    string `json:"url,omitempty" schema:"url"`
}

// Ref returns the platform file id, falling back to the URL.
func (i ImageRef) Ref() string {
	if i.FileID != "" {
		return i.FileID
	}
	return i.URL
}

// AttachmentSource is implemented by transports that can expose the images
// attached to the triggering message.
type AttachmentSource interface {
	FirstImage() (ImageRef, bool)
}

// Images is an AttachmentSource over a fixed list of images.
type Images []ImageRef

// FirstImage returns the first image with a usable reference.
func (imgs Images) FirstImage() (ImageRef, bool) {
	for _, img := range imgs {
		if img.Ref() != "" {
			return img, true
		}
	}
	return ImageRef{}, false
}

// Message is one inbound chat command.
type Message struct {
	Text        string
	GroupID     string // empty for private chats
	SenderID    string
	Attachments AttachmentSource
}

func (m Message) image() (string, bool) {
	if m.Attachments == nil {
		return "", false
	}
	img, ok := m.Attachments.FirstImage()
	if !ok {
		return "", false
	}
	return img.Ref(), true
}

// Reply is the outcome of a command.
type Reply struct {
	Text string
	// Image is an opaque image reference the transport should render
	// alongside Text.
	Image string
	// Err is set when the command failed; Text then holds the user message.
	Err error
}
