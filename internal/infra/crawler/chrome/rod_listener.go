package chrome

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/types"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/go-rod/rod/lib/proto"
)

// SetNetworkListener 被动监听, 不拦截请求: 响应头到达时记录, 加载完成后读取响应体
func (rc *rodCrawler) SetNetworkListener(ctx context.Context, urlPattern string, respChan chan<- *types.NetworkResponse) error {
	page := rc.page.Context(ctx)
	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fmt.Errorf("开启网络监听失败: %w", err)
	}

	go page.EachEvent(
		func(e *proto.NetworkResponseReceived) {
			if !strings.Contains(e.Response.URL, urlPattern) {
				return
			}
			rc.requestCache.Add(e.RequestID, &types.NetworkResponse{
				Url:         e.Response.URL,
				UrlPattern:  urlPattern,
				Status:      e.Response.Status,
				ContentType: e.Response.MIMEType,
			})
		},
		func(e *proto.NetworkLoadingFinished) {
			pending, ok := rc.requestCache.Get(e.RequestID)
			if !ok {
				return
			}
			rc.requestCache.Remove(e.RequestID)
			go rc.fetchBody(ctx, e.RequestID, pending, respChan)
		},
		func(e *proto.NetworkLoadingFailed) {
			rc.requestCache.Remove(e.RequestID)
		},
	)()
	return nil
}

func (rc *rodCrawler) fetchBody(ctx context.Context, id proto.NetworkRequestID, resp *types.NetworkResponse, respChan chan<- *types.NetworkResponse) {
	res, err := proto.NetworkGetResponseBody{RequestID: id}.Call(rc.page.Context(ctx))
	if err != nil {
		rc.log.Warn("读取响应体失败", logger.String("url", resp.Url), logger.Error(err))
		return
	}
	body := []byte(res.Body)
	if res.Base64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(res.Body)
		if err != nil {
			rc.log.Warn("响应体 base64 解码失败", logger.String("url", resp.Url), logger.Error(err))
			return
		}
		body = decoded
	}
	resp.Body = body

	select {
	case respChan <- resp:
	case <-ctx.Done():
	}
}
