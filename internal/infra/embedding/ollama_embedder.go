package embedding

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/config"
	"github.com/cloudwego/eino-ext/components/embedding/ollama"
)

type embedder struct {
	model     *ollama.Embedder
	batchSize int
}

// InitEmbedder 初始化 ollama 嵌入器
func InitEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	model, err := ollama.NewEmbedder(ctx, &ollama.EmbeddingConfig{
		Model:   cfg.Embedder.Model,
		BaseURL: cfg.Embedder.Host + ":" + strconv.Itoa(cfg.Embedder.Port),
	})
	if err != nil {
		return nil, fmt.Errorf("init ollama embedder: %w", err)
	}
	batchSize := cfg.Embedder.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &embedder{model: model, batchSize: batchSize}, nil
}

func (e *embedder) BatchSize() int {
	return e.batchSize
}

// Embed EmbedStrings 返回 float64, 索引里存 float32
func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.model.EmbedStrings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	return toFloat32(vectors), nil
}

func toFloat32(vectors [][]float64) [][]float32 {
	out := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		f := make([]float32, len(v))
		for i, x := range v {
			f[i] = float32(x)
		}
		out = append(out, f)
	}
	return out
}
