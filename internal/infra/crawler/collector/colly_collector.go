package collector

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// Options 抓取器选项, Transport 为空时使用 colly 默认传输
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Headers   map[string]string
	Transport http.RoundTripper
}

type collyCrawler struct {
	colly   *colly.Collector
	headers map[string]string
}

func InitCollyCrawler(opts Options) CollyCrawler {
	collectorOpts := []colly.CollectorOption{colly.IgnoreRobotsTxt()}
	if opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(opts.UserAgent))
	}
	c := colly.NewCollector(collectorOpts...)
	if opts.Timeout > 0 {
		c.SetRequestTimeout(opts.Timeout)
	}
	if opts.Transport != nil {
		c.WithTransport(opts.Transport)
	}
	return &collyCrawler{colly: c, headers: opts.Headers}
}

func (c *collyCrawler) Visit(url string) error {
	if err := c.colly.Visit(url); err != nil {
		return fmt.Errorf("访问URL失败: %w", err)
	}
	return nil
}

func (c *collyCrawler) Wait() {
	c.colly.Wait()
}

// OnRequest 先写入固定请求头再调用 callback
func (c *collyCrawler) OnRequest(callback func(r *colly.Request)) {
	c.colly.OnRequest(func(r *colly.Request) {
		for k, v := range c.headers {
			r.Headers.Set(k, v)
		}
		if callback != nil {
			callback(r)
		}
	})
}

func (c *collyCrawler) OnResponse(callback func(r *colly.Response)) {
	c.colly.OnResponse(callback)
}

func (c *collyCrawler) OnError(callback func(r *colly.Response, err error)) {
	c.colly.OnError(callback)
}

// Fetch 抓取单个 URL 并返回响应体, 非 2xx 视为错误
func Fetch(c CollyCrawler, url string) ([]byte, error) {
	var (
		body   []byte
		reqErr error
	)
	c.OnRequest(nil)
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		reqErr = fmt.Errorf("status %d: %w", r.StatusCode, err)
	})
	if err := c.Visit(url); err != nil {
		return nil, err
	}
	c.Wait()
	if reqErr != nil {
		return nil, reqErr
	}
	return body, nil
}
