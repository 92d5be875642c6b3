package es

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/config"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// InitTypedClient 创建 Elasticsearch typed client
func InitTypedClient(cfg *config.Config) (*elasticsearch.TypedClient, error) {
	typedClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username:  cfg.Elasticsearch.Username,
		Password:  cfg.Elasticsearch.Password,
		Addresses: []string{cfg.Elasticsearch.Address},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			// 跳过TLS验证（仅在开发环境中使用）
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Elasticsearch client: %w", err)
	}
	return typedClient, nil
}

// EnsureIndex 索引不存在时按 mapping 创建
func EnsureIndex(ctx context.Context, client *elasticsearch.TypedClient, index string, mapping *types.TypeMapping, log logger.Logger) error {
	exists, err := client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index existence in es: %w", err)
	}
	if exists {
		log.Info("索引已存在, 跳过创建", logger.String("index", index))
		return nil
	}
	if _, err := client.Indices.Create(index).Mappings(mapping).Do(ctx); err != nil {
		return fmt.Errorf("failed to create index in es: %w", err)
	}
	log.Info("索引已创建", logger.String("index", index))
	return nil
}
