package myhttp

import (
	"context"
	"net/http"
	"strings"
	"time"

	"tujane/internal/mylogger"
)

// KeepAlive pings the public URL so that free hosting tiers do not put the
// service to sleep.
type KeepAlive struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      mylogger.Logger
}

func NewKeepAlive(url string, interval time.Duration, log mylogger.Logger) *KeepAlive {
	return &KeepAlive{
		url:      strings.TrimRight(url, "/") + "/",
		interval: interval,
		client:   &http.Client{Timeout: WaitTime * time.Second},
		log:      log,
	}
}

func (k *KeepAlive) Run(ctx context.Context) {
	log := k.log.Action("keep_alive").With("url", k.url)
	t := time.NewTicker(k.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := k.Ping(ctx); err != nil {
				log.Warn("keep-alive ping failed", "error", err.Error())
				continue
			}
			log.Debug("keep-alive ping sent")
		}
	}
}

func (k *KeepAlive) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return err
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
