package chrome

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

// 滚动后的短暂停顿, 等布局稳定
const scrollSettle = 80 * time.Millisecond

const summarizeJS = `const summarize = (n) => {
	if (!n || !n.tagName) return '';
	let s = n.tagName.toLowerCase();
	if (n.id) s += '#' + n.id;
	if (typeof n.className === 'string' && n.className.trim()) {
		s += '.' + n.className.trim().split(/\s+/).join('.');
	}
	return s;
};
const centerOf = (el) => {
	const r = el.getBoundingClientRect();
	return {r, cx: r.left + r.width / 2, cy: r.top + r.height / 2};
};`

const hideOverlaysJS = `() => {
	const selectors = [
		'.el-autocomplete-suggestion',
		'.el-autocomplete-suggestion.el-popper',
		'.el-autocomplete-suggestion *',
		'.el-select-dropdown',
		'.el-select-dropdown.el-popper',
		'.el-select-dropdown *',
		'.popper__arrow',
	];
	for (const sel of selectors) {
		document.querySelectorAll(sel).forEach((el) => {
			el.style.display = 'none';
			el.style.visibility = 'hidden';
			el.style.pointerEvents = 'none';
		});
	}
	const active = document.activeElement;
	if (active && typeof active.blur === 'function') active.blur();
	return true;
}`

const boxJS = `() => {
	const r = this.getBoundingClientRect();
	return {x: r.left, y: r.top, width: r.width, height: r.height};
}`

const disabledJS = `() => this.hasAttribute('disabled') || this.classList.contains('is-disabled')`

const scrollCenterJS = `() => this.scrollIntoView({block: 'center', inline: 'center'})`

const scrollUpJS = `(dy) => window.scrollBy(0, -dy)`

const hitTestJS = `() => {
	` + summarizeJS + `
	const {r, cx, cy} = centerOf(this);
	const stack = document.elementsFromPoint(cx, cy);
	const top = stack.length ? stack[0] : null;
	return {
		found: !!top,
		hitOk: !!top && (top === this || this.contains(top)),
		topSummary: summarize(top),
		rect: {x: r.left, y: r.top, width: r.width, height: r.height},
		centerX: cx,
		centerY: cy,
		viewportW: window.innerWidth,
		viewportH: window.innerHeight,
	};
}`

const interceptorChainJS = `(maxDepth) => {
	` + summarizeJS + `
	const {cx, cy} = centerOf(this);
	const stack = document.elementsFromPoint(cx, cy);
	const top = stack.length ? stack[0] : null;
	const chain = [];
	if (!top || top === this || this.contains(top)) return chain;
	let n = top;
	for (let i = 0; i < maxDepth && n; i++) {
		const tag = n.tagName ? n.tagName.toLowerCase() : '';
		if (!tag || tag === 'html' || tag === 'body') break;
		const cs = window.getComputedStyle(n);
		chain.push({tag, summary: summarize(n), position: cs.position, zIndex: cs.zIndex});
		n = n.parentElement;
	}
	return chain;
}`

const disablePointerJS = `(depth) => {
	` + summarizeJS + `
	const {cx, cy} = centerOf(this);
	const stack = document.elementsFromPoint(cx, cy);
	let n = stack.length ? stack[0] : null;
	for (let i = 0; i < depth && n; i++) n = n.parentElement;
	if (!n || n === document.body || n === document.documentElement) return '';
	n.style.pointerEvents = 'none';
	return summarize(n);
}`

type rodDOM struct {
	page *rod.Page
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Box(ctx context.Context) (*Rect, error) {
	obj, err := e.el.Context(ctx).Eval(boxJS)
	if err != nil {
		return nil, fmt.Errorf("读取元素位置失败: %w", err)
	}
	var r Rect
	if err := obj.Value.Unmarshal(&r); err != nil {
		return nil, fmt.Errorf("decode box: %w", err)
	}
	return &r, nil
}

func (e *rodElement) Disabled(ctx context.Context) (bool, error) {
	obj, err := e.el.Context(ctx).Eval(disabledJS)
	if err != nil {
		return false, fmt.Errorf("读取禁用状态失败: %w", err)
	}
	return obj.Value.Bool(), nil
}

func unwrap(el Element) (*rod.Element, error) {
	re, ok := el.(*rodElement)
	if !ok {
		return nil, errNotRodElement
	}
	return re.el, nil
}

func (d *rodDOM) Query(ctx context.Context, loc Locator) ([]Element, error) {
	page := d.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	switch loc.Kind {
	case XPath:
		els, err = page.ElementsX(loc.Expr)
	default:
		els, err = page.Elements(loc.Expr)
	}
	if err != nil {
		return nil, fmt.Errorf("查找元素失败 %s: %w", loc, err)
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &rodElement{el: el})
	}
	return out, nil
}

func (d *rodDOM) DismissOverlays(ctx context.Context) error {
	page := d.page.Context(ctx)
	if err := page.KeyActions().Press(input.Escape).Do(); err != nil {
		return fmt.Errorf("按下 Escape 失败: %w", err)
	}
	if _, err := page.Eval(hideOverlaysJS); err != nil {
		return fmt.Errorf("隐藏浮层失败: %w", err)
	}
	return nil
}

func (d *rodDOM) ScrollIntoCenter(ctx context.Context, el Element, offsetY int) error {
	re, err := unwrap(el)
	if err != nil {
		return err
	}
	if _, err := re.Context(ctx).Eval(scrollCenterJS); err != nil {
		return fmt.Errorf("滚动到中央失败: %w", err)
	}
	if err := sleepCtx(ctx, scrollSettle); err != nil {
		return err
	}
	if _, err := d.page.Context(ctx).Eval(scrollUpJS, offsetY); err != nil {
		return fmt.Errorf("向上偏移失败: %w", err)
	}
	return sleepCtx(ctx, scrollSettle)
}

func (d *rodDOM) HitTest(ctx context.Context, el Element) (*HitTest, error) {
	re, err := unwrap(el)
	if err != nil {
		return nil, err
	}
	obj, err := re.Context(ctx).Eval(hitTestJS)
	if err != nil {
		return nil, fmt.Errorf("命中测试失败: %w", err)
	}
	var hit HitTest
	if err := obj.Value.Unmarshal(&hit); err != nil {
		return nil, fmt.Errorf("decode hit test: %w", err)
	}
	return &hit, nil
}

func (d *rodDOM) InterceptorChain(ctx context.Context, el Element, maxDepth int) ([]Node, error) {
	re, err := unwrap(el)
	if err != nil {
		return nil, err
	}
	obj, err := re.Context(ctx).Eval(interceptorChainJS, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("读取遮挡链失败: %w", err)
	}
	var chain []Node
	if err := obj.Value.Unmarshal(&chain); err != nil {
		return nil, fmt.Errorf("decode interceptor chain: %w", err)
	}
	return chain, nil
}

func (d *rodDOM) DisablePointerEvents(ctx context.Context, el Element, depth int) (string, error) {
	re, err := unwrap(el)
	if err != nil {
		return "", err
	}
	obj, err := re.Context(ctx).Eval(disablePointerJS, depth)
	if err != nil {
		return "", fmt.Errorf("禁用遮挡层失败: %w", err)
	}
	return obj.Value.Str(), nil
}

func (d *rodDOM) ForceClick(ctx context.Context, el Element, timeout time.Duration) error {
	box, err := el.Box(ctx)
	if err != nil {
		return err
	}
	x, y := box.Center()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	page := d.page.Context(ctx)

	events := []proto.InputDispatchMouseEvent{
		{Type: proto.InputDispatchMouseEventTypeMouseMoved, X: x, Y: y},
		{Type: proto.InputDispatchMouseEventTypeMousePressed, X: x, Y: y, Button: proto.InputMouseButtonLeft, ClickCount: 1},
		{Type: proto.InputDispatchMouseEventTypeMouseReleased, X: x, Y: y, Button: proto.InputMouseButtonLeft, ClickCount: 1},
	}
	for _, ev := range events {
		if err := ev.Call(page); err != nil {
			return fmt.Errorf("派发鼠标事件 %s 失败: %w", ev.Type, err)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
