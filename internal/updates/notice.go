package updates

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/updater/internal/domain"
	"github.com/MrSnakeDoc/updater/internal/logger"
)

// Notifier receives soft errors sent by the update server (msg), such as a
// request to renew the license. It must not block.
type Notifier interface {
	Notice(ctx context.Context, product domain.Product, message string)
}

// Notice is one admin facing message.
type Notice struct {
	Slug    string    `json:"slug"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NoticeBoard logs notices and keeps the latest one per product.
type NoticeBoard struct {
	mu      sync.RWMutex
	notices map[string]Notice // slug -> latest notice
	log     logger.Logger
}

// NewNoticeBoard creates an empty board. log may be nil.
func NewNoticeBoard(log logger.Logger) *NoticeBoard {
	if log == nil {
		log = logger.Nop()
	}
	return &NoticeBoard{
		notices: make(map[string]Notice),
		log:     log,
	}
}

// Notice implements Notifier.
func (b *NoticeBoard) Notice(_ context.Context, product domain.Product, message string) {
	b.log.Warn("update server notice",
		logger.String("slug", product.Slug),
		logger.String("message", message),
	)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices[product.Slug] = Notice{Slug: product.Slug, Message: message, At: time.Now()}
}

// Get returns the latest notice for slug.
func (b *NoticeBoard) Get(slug string) (Notice, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n, ok := b.notices[slug]
	return n, ok
}

// Clear forgets the notice for slug.
func (b *NoticeBoard) Clear(slug string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.notices, slug)
}
