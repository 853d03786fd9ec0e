package engine

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/engine-bench/pkg/utils"
	"github.com/elastic/go-elasticsearch/v8"
)

type ElasticsearchProbe struct {
	client *elasticsearch.Client
}

// NewElasticsearchProbe accepts a comma-separated list of node addresses.
func NewElasticsearchProbe(addresses string) (*ElasticsearchProbe, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:  utils.SplitList(addresses, ","),
		MaxRetries: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &ElasticsearchProbe{client: client}, nil
}

func (p *ElasticsearchProbe) Ping(ctx context.Context) error {
	res, err := p.client.Ping(p.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("es ping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("es ping status %s", res.Status())
	}
	return nil
}

func (p *ElasticsearchProbe) Close() error { return nil }
