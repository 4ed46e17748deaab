package action

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/nanobanana123/tldraw-agent/internal/document"
)

// Vec is a 2D offset between model space and canvas space.
type Vec struct {
	X float64
	Y float64
}

// Helpers is the per-turn context shared by all handlers. It is owned
// exclusively by the current turn and never crosses turns.
type Helpers struct {
	doc       document.Store
	offset    Vec
	scheduler Scheduler

	mu            sync.Mutex
	usedShapeIDs  map[string]bool
	retryMessage  string
	retryPending  bool
	imageCreated  bool
	followupQuery string
}

// NewHelpers creates the helpers context for one agent turn. offset is
// the translation from model space into canvas space.
func NewHelpers(doc document.Store, offset Vec) *Helpers {
	return &Helpers{
		doc:          doc,
		offset:       offset,
		usedShapeIDs: make(map[string]bool),
	}
}

// SetScheduler attaches the conversation scheduler for this turn.
func (h *Helpers) SetScheduler(s Scheduler) {
	h.scheduler = s
}

// Schedule forwards a conversation entry to the turn's scheduler, if
// one is attached.
func (h *Helpers) Schedule(s Schedule) {
	if h.scheduler != nil {
		h.scheduler.Schedule(s)
	}
}

// EnsureShapeIDIsUnique returns a collision-free variant of id, checking
// both the ids already claimed this turn and the document itself.
func (h *Helpers) EnsureShapeIDIsUnique(ctx context.Context, id string) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	candidate := id
	for suffix := 2; h.taken(ctx, candidate); suffix++ {
		candidate = fmt.Sprintf("%s-%d", id, suffix)
	}
	h.usedShapeIDs[document.QualifyShapeID(candidate)] = true
	return candidate
}

// taken compares fully qualified ids so a bare incoming id still
// collides with the stored "shape:" form.
func (h *Helpers) taken(ctx context.Context, id string) bool {
	qualified := document.QualifyShapeID(id)
	if h.usedShapeIDs[qualified] {
		return true
	}
	if h.doc == nil {
		return false
	}
	_, err := h.doc.GetShape(ctx, qualified)
	return err == nil
}

// RemoveOffset translates a model-space position into canvas space.
func (h *Helpers) RemoveOffset(x, y float64) (float64, float64) {
	return x + h.offset.X, y + h.offset.Y
}

// AddOffset translates a canvas-space position into model space.
func (h *Helpers) AddOffset(x, y float64) (float64, float64) {
	return x - h.offset.X, y - h.offset.Y
}

// ScheduleImageRetry records a corrective hint for the upstream
// producer. This is a single slot, not a queue: the latest reason wins.
func (h *Helpers) ScheduleImageRetry(message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.retryMessage = message
	h.retryPending = true
}

// ImageRetry returns the pending retry hint, if any.
func (h *Helpers) ImageRetry() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.retryMessage, h.retryPending
}

// MarkImageCreated records that an image was committed this turn.
func (h *Helpers) MarkImageCreated() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.imageCreated = true
}

// ImageCreated reports whether an image was committed this turn.
func (h *Helpers) ImageCreated() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.imageCreated
}

// imageIntentWords are the cues that a message is about imagery and a
// follow-up search might help the user.
var imageIntentWords = []string{
	"image", "picture", "photo", "illustration", "logo", "icon", "visual", "drawing",
}

// ObserveMessageForImageFollowup inspects outgoing text for image
// intent. The recorded query is suppressed once an image has actually
// been created this turn.
func (h *Helpers) ObserveMessageForImageFollowup(text string) {
	lower := strings.ToLower(text)
	for _, word := range imageIntentWords {
		if strings.Contains(lower, word) {
			h.mu.Lock()
			h.followupQuery = text
			h.mu.Unlock()
			return
		}
	}
}

// SuggestedImageSearch returns the follow-up search query, unless an
// image was already created this turn.
func (h *Helpers) SuggestedImageSearch() (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.imageCreated || h.followupQuery == "" {
		return "", false
	}
	return h.followupQuery, true
}
