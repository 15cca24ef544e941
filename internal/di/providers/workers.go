package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/manualshelf/manualshelf-server/internal/config"
	"github.com/manualshelf/manualshelf-server/internal/logger"
	"github.com/manualshelf/manualshelf-server/internal/ratelimit"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

// InboxHandle runs the inbox watcher until shutdown. Service is nil when
// no inbox path is configured.
type InboxHandle struct {
	Service *service.InboxService
	cancel  context.CancelFunc
	done    chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *InboxHandle) Shutdown() error {
	if h.cancel == nil {
		return nil
	}
	h.cancel()
	<-h.done
	return nil
}

// ProvideInboxService provides the inbox service without starting it.
// ImportFile works without a configured inbox path.
func ProvideInboxService(i do.Injector) (*service.InboxService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	manuals := do.MustInvoke[*service.ManualService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInboxService(manuals, cfg.Inbox.Path, log.Logger), nil
}

// ProvideInboxWatcher starts watching the inbox in the background.
func ProvideInboxWatcher(i do.Injector) (*InboxHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Inbox.Path == "" {
		log.Info("Inbox disabled")
		return &InboxHandle{}, nil
	}

	inbox := do.MustInvoke[*service.InboxService](i)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := inbox.Run(ctx); err != nil {
			log.Error("Inbox stopped", "error", err)
		}
	}()

	return &InboxHandle{Service: inbox, cancel: cancel, done: done}, nil
}

// RateLimiterHandle wraps the per-client limiter with shutdown capability.
type RateLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *RateLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideRateLimiter provides the limiter for uploads and session creation.
func ProvideRateLimiter(i do.Injector) (*RateLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	return &RateLimiterHandle{
		KeyedRateLimiter: ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
	}, nil
}
