package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/domain/model"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/chrome"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/types"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/persistence/jsonl"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/param"
)

const (
	testAPIPattern = "youngapi.yingjiesheng.com/open/noauth/job/search"
	testKeyword    = "人力资源"
	testJobArea    = "250000"
)

func testParam(debugDir string) *param.Crawl {
	return &param.Crawl{
		Keyword:              testKeyword,
		AreaName:             "山东",
		JobArea:              testJobArea,
		SearchURL:            param.BuildSearchURL("https://q.yingjiesheng.com/jobs/search", testKeyword, testJobArea),
		APIPattern:           testAPIPattern,
		MaxPageActions:       20,
		StagnationLimit:      6,
		ClickTimeout:         time.Second,
		NextSelector:         "button.btn-next",
		NextXPath:            "//div[@class='pagination']/button[2]",
		ScrollOffset:         160,
		NavigationAttempts:   2,
		NavigationTimeout:    time.Second,
		NavigationBackoff:    time.Millisecond,
		NavigationBackoffMax: 2 * time.Millisecond,
		FirstPageTimeout:     time.Second,
		ArrivalTimeout:       500 * time.Millisecond,
		DebugDir:             debugDir,
	}
}

func apiURL(keyword, jobArea, pageno string) string {
	q := url.Values{}
	q.Set("keyword", keyword)
	if jobArea != "" {
		q.Set("jobarea", jobArea)
	}
	if pageno != "" {
		q.Set("pageno", pageno)
	}
	q.Set("pagesize", "20")
	return "https://" + testAPIPattern + "?" + q.Encode()
}

func payload(total int, ids ...string) []byte {
	items := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		items = append(items, map[string]any{"jobid": id, "jobname": "job " + id, "coname": "co " + id})
	}
	b, _ := json.Marshal(map[string]any{
		"status":  "1",
		"message": "ok",
		"resultbody": map[string]any{
			"requestId": "req",
			"searchData": map[string]any{
				"joblist": map[string]any{"totalCount": total, "items": items},
			},
		},
	})
	return b
}

func pageResponse(pageno string, body []byte) *types.NetworkResponse {
	return &types.NetworkResponse{
		Url:         apiURL(testKeyword, testJobArea, pageno),
		UrlPattern:  testAPIPattern,
		Status:      200,
		ContentType: "application/json",
		Body:        body,
	}
}

// memWriter 内存中的 RecordWriter
type memWriter struct {
	mu      sync.Mutex
	records []any
	closed  bool
	// failNext 接下来这么多次 Write 返回错误
	failNext int
}

func (w *memWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("closed")
	}
	if w.failNext > 0 {
		w.failNext--
		return errors.New("disk full")
	}
	w.records = append(w.records, v)
	return nil
}

func (w *memWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *memWriter) jobIDs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	ids := make([]string, 0, len(w.records))
	for _, r := range w.records {
		ids = append(ids, r.(*model.JobRecord).JobID)
	}
	return ids
}

func (w *memWriter) pagenos() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	pages := make([]string, 0, len(w.records))
	for _, r := range w.records {
		pages = append(pages, r.(*model.PageRecord).Pageno)
	}
	return pages
}

func (w *memWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type memDiagnostics struct {
	mu      sync.Mutex
	entries []jsonl.Diagnostic
	closed  bool
}

func (d *memDiagnostics) Record(diag jsonl.Diagnostic) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, diag)
	return nil
}

func (d *memDiagnostics) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *memDiagnostics) hints() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	hints := make([]string, 0, len(d.entries))
	for _, e := range d.entries {
		hints = append(hints, e.Hint)
	}
	return hints
}

type memIndex struct {
	mu  sync.Mutex
	ids []string
}

func (i *memIndex) Enqueue(rec *model.JobRecord) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, rec.JobID)
}

type memSinks struct {
	jobs  *memWriter
	pages *memWriter
	diag  *memDiagnostics
	index *memIndex
}

func newMemSinks() *memSinks {
	return &memSinks{jobs: &memWriter{}, pages: &memWriter{}, diag: &memDiagnostics{}, index: &memIndex{}}
}

func (m *memSinks) sinks() *Sinks {
	return &Sinks{Jobs: m.jobs, Pages: m.pages, Diagnostics: m.diag, Index: m.index}
}

func (m *memSinks) factory() SinkFactory {
	return func() (*Sinks, error) { return m.sinks(), nil }
}

// fakeElement 候选按钮
type fakeElement struct {
	visible  bool
	box      *chrome.Rect
	disabled bool
}

func (e *fakeElement) Visible(context.Context) (bool, error)   { return e.visible, nil }
func (e *fakeElement) Box(context.Context) (*chrome.Rect, error) { return e.box, nil }
func (e *fakeElement) Disabled(context.Context) (bool, error)  { return e.disabled, nil }

func nextButton() *fakeElement {
	return &fakeElement{visible: true, box: &chrome.Rect{X: 100, Y: 500, Width: 30, Height: 28}}
}

// fakeDOM 记录每一次宿主调用, 命中测试结果按顺序返回
type fakeDOM struct {
	mu       sync.Mutex
	elements map[chrome.LocatorKind][]chrome.Element
	hits     []*chrome.HitTest
	chain    []chrome.Node
	clickErr error
	onClick  func()
	calls    []string
	disabled []int
}

func (d *fakeDOM) record(call string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
}

func (d *fakeDOM) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func (d *fakeDOM) Query(_ context.Context, loc chrome.Locator) ([]chrome.Element, error) {
	d.record("query:" + loc.String())
	return d.elements[loc.Kind], nil
}

func (d *fakeDOM) DismissOverlays(context.Context) error {
	d.record("dismiss")
	return nil
}

func (d *fakeDOM) ScrollIntoCenter(context.Context, chrome.Element, int) error {
	d.record("scroll")
	return nil
}

func (d *fakeDOM) HitTest(context.Context, chrome.Element) (*chrome.HitTest, error) {
	d.record("hittest")
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.hits) == 0 {
		return &chrome.HitTest{Found: true, HitOK: true}, nil
	}
	hit := d.hits[0]
	if len(d.hits) > 1 {
		d.hits = d.hits[1:]
	}
	return hit, nil
}

func (d *fakeDOM) InterceptorChain(context.Context, chrome.Element, int) ([]chrome.Node, error) {
	d.record("chain")
	return d.chain, nil
}

func (d *fakeDOM) DisablePointerEvents(_ context.Context, _ chrome.Element, depth int) (string, error) {
	d.record("disable")
	d.mu.Lock()
	defer d.mu.Unlock()
	d.disabled = append(d.disabled, depth)
	return "div.mask", nil
}

func (d *fakeDOM) ForceClick(context.Context, chrome.Element, time.Duration) error {
	d.record("click")
	if d.clickErr != nil {
		return d.clickErr
	}
	if d.onClick != nil {
		d.onClick()
	}
	return nil
}

// fakeBrowser 模拟站点: 导航后推送首页响应, 每次点击按脚本推送响应
type fakeBrowser struct {
	mu          sync.Mutex
	dom         *fakeDOM
	listenCtx   context.Context
	respChan    chan<- *types.NetworkResponse
	navFailures int
	navCalls    int
	onNavigate  []*types.NetworkResponse
	onClick     map[int][]*types.NetworkResponse
	clicks      int
	screenshots []string
	closed      bool
}

func newFakeBrowser() *fakeBrowser {
	b := &fakeBrowser{onClick: map[int][]*types.NetworkResponse{}}
	b.dom = &fakeDOM{
		elements: map[chrome.LocatorKind][]chrome.Element{chrome.CSS: {nextButton()}},
		onClick:  b.click,
	}
	return b
}

func (b *fakeBrowser) emit(resps []*types.NetworkResponse) {
	for _, r := range resps {
		select {
		case b.respChan <- r:
		case <-b.listenCtx.Done():
			return
		}
	}
}

func (b *fakeBrowser) click() {
	b.mu.Lock()
	b.clicks++
	resps := b.onClick[b.clicks]
	b.mu.Unlock()
	b.emit(resps)
}

func (b *fakeBrowser) Navigate(ctx context.Context, _ string) error {
	b.mu.Lock()
	b.navCalls++
	fail := b.navCalls <= b.navFailures
	b.mu.Unlock()
	if fail {
		return errors.New("net::ERR_CONNECTION_RESET")
	}
	b.emit(b.onNavigate)
	return nil
}

func (b *fakeBrowser) SetNetworkListener(ctx context.Context, _ string, respChan chan<- *types.NetworkResponse) error {
	b.listenCtx = ctx
	b.respChan = respChan
	return nil
}

func (b *fakeBrowser) DOM() chrome.DOM { return b.dom }

func (b *fakeBrowser) Screenshot(_ context.Context, path string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.screenshots = append(b.screenshots, path)
	return nil
}

func (b *fakeBrowser) StorageState(context.Context) (*session.StorageState, error) {
	return &session.StorageState{Cookies: []session.Cookie{{Name: "sid", Value: "v", Domain: ".yingjiesheng.com", Path: "/"}}}, nil
}

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type fakeSessions struct {
	mu        sync.Mutex
	state     *session.StorageState
	persisted []*session.StorageState
}

func (s *fakeSessions) Restore() (*session.StorageState, error) {
	if s.state == nil {
		return nil, session.ErrNotFound
	}
	return s.state, nil
}

func (s *fakeSessions) Persist(state *session.StorageState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persisted = append(s.persisted, state)
	return nil
}

type noopPacer struct {
	mu    sync.Mutex
	waits []int
}

func (p *noopPacer) Wait(ctx context.Context, stagnation int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, stagnation)
	return ctx.Err()
}
