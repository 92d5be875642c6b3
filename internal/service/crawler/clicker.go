package crawler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/chrome"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/metrics"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/param"
)

const (
	maxCandidates    = 30
	minBoxSize       = 2.0
	interceptorDepth = 10
	highZIndex       = 1000
)

// Clicker 在浮层与吸顶栏遮挡下仍能点到"下一页"
type Clicker struct {
	dom          chrome.DOM
	locators     []chrome.Locator
	scrollOffset int
	timeout      time.Duration
	log          logger.Logger
	metrics      *metrics.Metrics
}

func NewClicker(dom chrome.DOM, p *param.Crawl, log logger.Logger, m *metrics.Metrics) *Clicker {
	locators := []chrome.Locator{{Kind: chrome.CSS, Expr: p.NextSelector}}
	if p.NextXPath != "" {
		locators = append(locators, chrome.Locator{Kind: chrome.XPath, Expr: p.NextXPath})
	}
	return &Clicker{
		dom:          dom,
		locators:     locators,
		scrollOffset: p.ScrollOffset,
		timeout:      p.ClickTimeout,
		log:          log,
		metrics:      m,
	}
}

// ClickNext 点击已派发返回 true; 找不到按钮或按钮禁用返回 false
func (c *Clicker) ClickNext(ctx context.Context) (bool, error) {
	el, loc, err := c.resolve(ctx)
	if err != nil {
		return false, err
	}
	if el == nil {
		c.log.Warn("未找到可见的下一页按钮")
		c.metrics.IncClick("not_found")
		return false, nil
	}
	if disabled, err := el.Disabled(ctx); err != nil {
		return false, fmt.Errorf("read disabled state: %w", err)
	} else if disabled {
		c.log.Info("下一页按钮已禁用", logger.String("locator", loc.String()))
		c.metrics.IncClick("disabled")
		return false, nil
	}

	if err := c.prepare(ctx, el); err != nil {
		return false, err
	}
	hit, err := c.dom.HitTest(ctx, el)
	if err != nil {
		return false, fmt.Errorf("hit test: %w", err)
	}
	if !hit.HitOK {
		c.log.Warn("下一页按钮被遮挡", logger.String("top", hit.TopSummary))
		if err := c.unblock(ctx, el); err != nil {
			return false, err
		}
	}

	if err := c.dom.ForceClick(ctx, el, c.timeout); err != nil {
		c.metrics.IncClick("failed")
		return false, fmt.Errorf("%w: %w", ErrClickTimeout, err)
	}
	c.metrics.IncClick("dispatched")
	c.log.Debug("已点击下一页", logger.String("locator", loc.String()))
	return true, nil
}

// resolve 按定位器顺序扫描, 返回第一个可见且尺寸有效的元素
func (c *Clicker) resolve(ctx context.Context) (chrome.Element, chrome.Locator, error) {
	for _, loc := range c.locators {
		els, err := c.dom.Query(ctx, loc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, loc, ctx.Err()
			}
			c.log.Debug("定位器查询失败", logger.String("locator", loc.String()), logger.Error(err))
			continue
		}
		if len(els) > maxCandidates {
			els = els[:maxCandidates]
		}
		for _, el := range els {
			if visible, err := el.Visible(ctx); err != nil || !visible {
				continue
			}
			box, err := el.Box(ctx)
			if err != nil || box == nil || box.Width <= minBoxSize || box.Height <= minBoxSize {
				continue
			}
			return el, loc, nil
		}
	}
	return nil, chrome.Locator{}, nil
}

func (c *Clicker) prepare(ctx context.Context, el chrome.Element) error {
	if err := c.dom.DismissOverlays(ctx); err != nil {
		return fmt.Errorf("dismiss overlays: %w", err)
	}
	if err := c.dom.ScrollIntoCenter(ctx, el, c.scrollOffset); err != nil {
		return fmt.Errorf("scroll into view: %w", err)
	}
	return nil
}

// unblock 关闭遮挡节点的 pointer-events 后重新准备, 再次命中测试只用于记录
func (c *Clicker) unblock(ctx context.Context, el chrome.Element) error {
	chain, err := c.dom.InterceptorChain(ctx, el, interceptorDepth)
	if err != nil {
		return fmt.Errorf("interceptor chain: %w", err)
	}
	depth, reason, ok := pickInterceptor(chain, highZIndex)
	if !ok {
		c.log.Warn("遮挡链中没有可禁用的节点", logger.Int("chain", len(chain)))
		return nil
	}
	summary, err := c.dom.DisablePointerEvents(ctx, el, depth)
	if err != nil {
		return fmt.Errorf("disable pointer events: %w", err)
	}
	c.log.Info("已禁用遮挡节点", logger.String("node", summary), logger.String("reason", reason), logger.Int("depth", depth))

	if err := c.prepare(ctx, el); err != nil {
		return err
	}
	if hit, err := c.dom.HitTest(ctx, el); err == nil && !hit.HitOK {
		c.log.Warn("禁用后仍被遮挡, 继续强制点击", logger.String("top", hit.TopSummary))
	}
	return nil
}

// pickInterceptor 选出遮挡链中第一个 fixed/sticky 或 z-index 不低于阈值的节点
func pickInterceptor(chain []chrome.Node, zThreshold int) (int, string, bool) {
	for i, n := range chain {
		switch strings.ToLower(strings.TrimSpace(n.Position)) {
		case "fixed", "sticky":
			return i, "fixed_or_sticky", true
		}
		if z, err := strconv.Atoi(strings.TrimSpace(n.ZIndex)); err == nil && z >= zThreshold {
			return i, "high_z", true
		}
	}
	return 0, "", false
}
