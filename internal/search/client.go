// Package search keeps a full-text directory of oficinas in Elasticsearch.
package search

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/elastic-transport-go/v8/elastictransport"
	"github.com/elastic/go-elasticsearch/v8"
	"go.uber.org/zap"
)

// transportLogger adapts zap.Logger to elastictransport.Logger.
type transportLogger struct {
	logger *zap.Logger
}

var _ elastictransport.Logger = (*transportLogger)(nil)

func (l *transportLogger) LogRoundTrip(req *http.Request, res *http.Response, err error, start time.Time, dur time.Duration) error {
	var statusCode int
	if res != nil {
		statusCode = res.StatusCode
	}
	l.logger.Debug("Elasticsearch RoundTrip",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status_code", statusCode),
		zap.Duration("duration", dur),
		zap.Error(err),
	)
	return nil
}

func (l *transportLogger) RequestBodyEnabled() bool  { return false }
func (l *transportLogger) ResponseBodyEnabled() bool { return false }

// NewClient connects to the cluster at url and checks it answers.
func NewClient(ctx context.Context, url string, logger *zap.Logger) (*elasticsearch.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("elasticsearch url is empty")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{url},
		Logger:        &transportLogger{logger: logger.Named("elasticsearch_client")},
		RetryOnStatus: []int{502, 503, 504, 429},
		RetryBackoff: func(i int) time.Duration {
			return time.Duration(i) * 100 * time.Millisecond
		},
		MaxRetries: 5,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch.NewClient: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("pinging elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch info: %s", res.Status())
	}

	logger.Info("Elasticsearch client connected", zap.String("url", url), zap.String("client_version", elasticsearch.Version))
	return client, nil
}
