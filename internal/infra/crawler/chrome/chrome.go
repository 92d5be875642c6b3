package chrome

import (
	"context"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/types"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
)

// ChromeCrawler 单浏览器单页面的爬取器: 导航、被动监听网络响应、DOM 操作、截图、导出登录态
type ChromeCrawler interface {
	// Navigate 导航并等待 DOMContentLoaded, 超时由 ctx 控制
	Navigate(ctx context.Context, url string) error
	// SetNetworkListener 监听 URL 包含 urlPattern 的响应, 响应体读取完成后写入 respChan, ctx 结束时停止
	SetNetworkListener(ctx context.Context, urlPattern string, respChan chan<- *types.NetworkResponse) error
	DOM() DOM
	// Screenshot 整页截图写入 path
	Screenshot(ctx context.Context, path string) error
	StorageState(ctx context.Context) (*session.StorageState, error)
	Close() error
}

// LocatorKind 定位方式
type LocatorKind int

const (
	CSS LocatorKind = iota
	XPath
)

type Locator struct {
	Kind LocatorKind
	Expr string
}

func (l Locator) String() string {
	if l.Kind == XPath {
		return "xpath=" + l.Expr
	}
	return "css=" + l.Expr
}

// Rect 视口坐标系下的矩形
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Center() (float64, float64) {
	return r.X + r.Width/2, r.Y + r.Height/2
}

// Element 页面上的一个候选元素
type Element interface {
	Visible(ctx context.Context) (bool, error)
	Box(ctx context.Context) (*Rect, error)
	// Disabled disabled 属性或 is-disabled 样式类
	Disabled(ctx context.Context) (bool, error)
}

// HitTest elementsFromPoint 在元素中心点的命中结果
type HitTest struct {
	Found      bool    `json:"found"`
	HitOK      bool    `json:"hitOk"`
	TopSummary string  `json:"topSummary"`
	Rect       Rect    `json:"rect"`
	CenterX    float64 `json:"centerX"`
	CenterY    float64 `json:"centerY"`
	ViewportW  float64 `json:"viewportW"`
	ViewportH  float64 `json:"viewportH"`
}

// Node 遮挡链上的一个节点, 从命中的最上层元素开始向上, 不含 html/body
type Node struct {
	Tag      string `json:"tag"`
	Summary  string `json:"summary"`
	Position string `json:"position"`
	// ZIndex 计算样式中的 z-index 原值, 可能是 "auto"
	ZIndex string `json:"zIndex"`
}

// DOM 点击流程需要的宿主原语
type DOM interface {
	Query(ctx context.Context, loc Locator) ([]Element, error)
	// DismissOverlays 按 Escape, 隐藏 ElementUI 下拉浮层, 让当前焦点元素失焦
	DismissOverlays(ctx context.Context) error
	// ScrollIntoCenter 滚动到视口中央后再向上滚 offsetY 像素, 避开吸顶栏
	ScrollIntoCenter(ctx context.Context, el Element, offsetY int) error
	HitTest(ctx context.Context, el Element) (*HitTest, error)
	InterceptorChain(ctx context.Context, el Element, maxDepth int) ([]Node, error)
	// DisablePointerEvents 对遮挡链第 depth 个节点设置 pointer-events: none, 返回其摘要
	DisablePointerEvents(ctx context.Context, el Element, depth int) (string, error)
	// ForceClick 在元素中心直接派发鼠标事件, 不做可操作性检查
	ForceClick(ctx context.Context, el Element, timeout time.Duration) error
}
