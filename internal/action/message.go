package action

import (
	"context"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// MessageHandler handles the plain conversational message action. It
// never mutates the document; its only side effect is feeding the text
// to the image follow-up observer.
type MessageHandler struct {
	baseHandler
}

func NewMessageHandler() *MessageHandler { return &MessageHandler{} }

func (*MessageHandler) Kind() Kind { return KindMessage }

func (*MessageHandler) Schema() *jsonschema.Schema { return schemaFor(KindMessage) }

func (*MessageHandler) Info(_ context.Context, env *Envelope) Info {
	text, _ := env.Fields["text"].(string)
	return Info{Description: text}
}

func (*MessageHandler) Apply(_ context.Context, env *Envelope, helpers *Helpers) error {
	if !env.Complete {
		return nil
	}
	if text, _ := env.Fields["text"].(string); text != "" {
		helpers.ObserveMessageForImageFollowup(text)
	}
	return nil
}
