package crawler

import (
	"context"
	"fmt"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/domain/model"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/persistence/jsonl"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/param"
	"golang.org/x/sync/errgroup"
)

// RecordWriter 追加写入一条记录, 写入即落盘
type RecordWriter interface {
	Write(v any) error
	Close() error
}

type DiagnosticRecorder interface {
	Record(d jsonl.Diagnostic) error
	Close() error
}

// JobIndexer 可选的异步索引, 生命周期由调用方管理
type JobIndexer interface {
	Enqueue(rec *model.JobRecord)
}

// Sinks 一次爬取尝试的输出
type Sinks struct {
	Jobs        RecordWriter
	Pages       RecordWriter
	Diagnostics DiagnosticRecorder
	Index       JobIndexer
}

// SinkFactory 每次尝试打开一组新的输出 (追加模式)
type SinkFactory func() (*Sinks, error)

// JSONLSinks 返回打开 JSONL 文件的 SinkFactory, index 可为 nil
func JSONLSinks(files param.OutputFiles, badResponsesLog string, index JobIndexer) SinkFactory {
	return func() (*Sinks, error) {
		jobs, err := jsonl.Open(files.Jobs)
		if err != nil {
			return nil, err
		}
		pages, err := jsonl.Open(files.Pages)
		if err != nil {
			_ = jobs.Close()
			return nil, err
		}
		diag, err := jsonl.OpenDiagnosticLog(badResponsesLog)
		if err != nil {
			_ = jobs.Close()
			_ = pages.Close()
			return nil, err
		}
		return &Sinks{Jobs: jobs, Pages: pages, Diagnostics: diag, Index: index}, nil
	}
}

// Close 并行关闭所有文件输出
func (s *Sinks) Close(ctx context.Context) error {
	g, _ := errgroup.WithContext(ctx)
	for name, c := range map[string]interface{ Close() error }{
		"jobs":        s.Jobs,
		"pages":       s.Pages,
		"diagnostics": s.Diagnostics,
	} {
		if c == nil {
			continue
		}
		g.Go(func() error {
			if err := c.Close(); err != nil {
				return fmt.Errorf("close %s sink: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *Sinks) diagnose(d jsonl.Diagnostic) error {
	if s.Diagnostics == nil {
		return nil
	}
	return s.Diagnostics.Record(d)
}
