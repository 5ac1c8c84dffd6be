package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/molly1022/inovai-exame-cloud-producao-27-main-sub004/internal/domain"
)

// HTTPConfig provisioning service client settings
type HTTPConfig struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	RetryCount int
}

// HTTP asks the provisioning service: GET {base}/backends/{subdomain}.
// 404 means the clinic has no isolated backend.
type HTTP struct {
	client *resty.Client
	logger *zap.Logger
}

type backendResponse struct {
	Endpoint    string `json:"endpoint"`
	Credential  string `json:"credential"`
	BackendName string `json:"backend_name"`
}

func NewHTTP(cfg HTTPConfig, logger *zap.Logger) *HTTP {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		client.SetAuthToken(cfg.Token)
	}
	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		return err != nil || r.StatusCode() >= http.StatusInternalServerError
	})

	return &HTTP{client: client, logger: logger}
}

func (h *HTTP) Lookup(ctx context.Context, subdomain string) (domain.Connection, bool, error) {
	var body backendResponse
	resp, err := h.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get("/backends/" + url.PathEscape(normalize(subdomain)))
	if err != nil {
		h.logger.Error("Provisioning service call failed",
			zap.String("subdomain", subdomain),
			zap.Error(err),
		)
		return domain.Connection{}, false, fmt.Errorf("provisioning service: %w", err)
	}

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return domain.Connection{}, false, nil
	case resp.IsError():
		h.logger.Error("Provisioning service returned error",
			zap.String("subdomain", subdomain),
			zap.Int("status_code", resp.StatusCode()),
		)
		return domain.Connection{}, false, fmt.Errorf("provisioning service: status %d", resp.StatusCode())
	}

	return domain.Connection{
		Endpoint:    body.Endpoint,
		Credential:  body.Credential,
		BackendName: body.BackendName,
	}, true, nil
}
