package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/config"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/domain/model"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/embedding"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/elastic/go-elasticsearch/v9/esutil"
	"golang.org/x/sync/errgroup"
)

const queueSize = 1024

// JobIndex 异步把职位写入 Elasticsearch; 入队不阻塞, 队列满时丢弃并计数
type JobIndex struct {
	bulk     esutil.BulkIndexer
	embedder embedding.Embedder
	log      logger.Logger

	mu     sync.Mutex
	closed bool
	queue  chan *model.JobRecord
	group  *errgroup.Group

	indexed atomic.Int64
	failed  atomic.Int64
	dropped atomic.Int64
}

// InitJobIndex 确保索引存在并启动后台写入协程, embedder 可为 nil
func InitJobIndex(ctx context.Context, cfg *config.Config, embedder embedding.Embedder, log logger.Logger) (*JobIndex, error) {
	client, err := InitTypedClient(cfg)
	if err != nil {
		return nil, err
	}
	dims := 0
	if embedder != nil {
		dims = cfg.Embedder.Dims
	}
	if err := EnsureIndex(ctx, client, cfg.Elasticsearch.Index, model.JobTypeMapping(dims), log); err != nil {
		return nil, err
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         cfg.Elasticsearch.Index,
		Client:        client,
		NumWorkers:    1,
		FlushBytes:    1024 * 1024,
		FlushInterval: 5 * time.Second,
		OnError: func(ctx context.Context, err error) {
			log.Error("bulk indexer error", logger.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bulk indexer: %w", err)
	}
	return newJobIndex(ctx, bi, embedder, log), nil
}

func newJobIndex(ctx context.Context, bulk esutil.BulkIndexer, embedder embedding.Embedder, log logger.Logger) *JobIndex {
	ji := &JobIndex{
		bulk:     bulk,
		embedder: embedder,
		log:      log,
		queue:    make(chan *model.JobRecord, queueSize),
	}
	// 写入协程不随爬取 ctx 取消, Close 时把队列排空
	workCtx := context.WithoutCancel(ctx)
	ji.group, workCtx = errgroup.WithContext(workCtx)
	ji.group.Go(func() error { return ji.run(workCtx) })
	return ji
}

// Enqueue 非阻塞入队
func (ji *JobIndex) Enqueue(rec *model.JobRecord) {
	ji.mu.Lock()
	defer ji.mu.Unlock()
	if ji.closed {
		return
	}
	select {
	case ji.queue <- rec:
	default:
		ji.dropped.Add(1)
		ji.log.Warn("索引队列已满, 丢弃记录", logger.String("job_id", rec.JobID))
	}
}

func (ji *JobIndex) run(ctx context.Context) error {
	batchSize := 1
	if ji.embedder != nil {
		batchSize = max(1, ji.embedder.BatchSize())
	}
	batch := make([]*model.JobRecord, 0, batchSize)
	for rec := range ji.queue {
		batch = append(batch, rec)
		// 队列暂时为空或批次已满时提交
		if len(batch) >= batchSize || len(ji.queue) == 0 {
			ji.submit(ctx, batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		ji.submit(ctx, batch)
	}
	return nil
}

func (ji *JobIndex) submit(ctx context.Context, batch []*model.JobRecord) {
	docs := make([]*model.JobDoc, 0, len(batch))
	for _, rec := range batch {
		docs = append(docs, &model.JobDoc{JobRecord: rec})
	}
	if ji.embedder != nil {
		texts := make([]string, 0, len(docs))
		for _, d := range docs {
			texts = append(texts, d.GetEmbeddingString())
		}
		vectors, err := ji.embedder.Embed(ctx, texts)
		switch {
		case err != nil:
			ji.log.Warn("向量化失败, 不带向量写入", logger.Error(err), logger.Int("batch", len(docs)))
		case len(vectors) != len(docs):
			ji.log.Warn("向量数量与文档数量不一致, 不带向量写入", logger.Int("vectors", len(vectors)), logger.Int("batch", len(docs)))
		default:
			for i, d := range docs {
				d.SetEmbedding(vectors[i])
			}
		}
	}

	for _, d := range docs {
		data, err := json.Marshal(d)
		if err != nil {
			ji.failed.Add(1)
			ji.log.Error("encode job document", logger.String("job_id", d.JobID), logger.Error(err))
			continue
		}
		err = ji.bulk.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: d.GetID(),
			Body:       bytes.NewReader(data),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				ji.indexed.Add(1)
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				ji.failed.Add(1)
				if err != nil {
					ji.log.Warn("写入索引失败", logger.String("job_id", item.DocumentID), logger.Error(err))
				} else {
					ji.log.Warn("写入索引失败", logger.String("job_id", item.DocumentID), logger.String("reason", res.Error.Reason))
				}
			},
		})
		if err != nil {
			ji.failed.Add(1)
			ji.log.Error("add to bulk indexer", logger.String("job_id", d.JobID), logger.Error(err))
		}
	}
}

// Close 停止接收, 排空队列并刷新批量写入器. 重复调用无副作用
func (ji *JobIndex) Close(ctx context.Context) error {
	ji.mu.Lock()
	if ji.closed {
		ji.mu.Unlock()
		return nil
	}
	ji.closed = true
	close(ji.queue)
	ji.mu.Unlock()

	if err := ji.group.Wait(); err != nil {
		return err
	}
	if err := ji.bulk.Close(ctx); err != nil {
		return fmt.Errorf("close bulk indexer: %w", err)
	}
	ji.log.Info("索引写入完成",
		logger.Int64("indexed", ji.indexed.Load()),
		logger.Int64("failed", ji.failed.Load()),
		logger.Int64("dropped", ji.dropped.Load()))
	return nil
}
