package crawler

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Tracker 一次爬取尝试内的分页进度: 已见页、已见职位、停滞计数、首页闩锁与按页等待句柄.
// 抽取器在响应消费协程中调用, 编排器在主协程中调用, 因此加锁.
type Tracker struct {
	mu         sync.Mutex
	seenPages  map[string]struct{}
	seenJobs   map[string]struct{}
	maxPage    int
	stagnation int
	pending    map[string]chan struct{}
	lastPage   int

	firstPage     chan struct{}
	firstPageOnce sync.Once
}

func NewTracker() *Tracker {
	return &Tracker{
		seenPages: map[string]struct{}{},
		seenJobs:  map[string]struct{}{},
		pending:   map[string]chan struct{}{},
		maxPage:   1,
		firstPage: make(chan struct{}),
	}
}

func (t *Tracker) SeenPage(pageno string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seenPages[pageno]
	return ok
}

// RecordArrival 标记页已处理并唤醒等待该页的一方
func (t *Tracker) RecordArrival(pageno string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seenPages[pageno] = struct{}{}
	if n, err := strconv.Atoi(strings.TrimSpace(pageno)); err == nil && n > t.maxPage {
		t.maxPage = n
	}
	if ch, ok := t.pending[pageno]; ok {
		close(ch)
		delete(t.pending, pageno)
	}
}

// Expect 在点击前登记等待句柄; 该页已到达时返回已关闭的通道
func (t *Tracker) Expect(pageno string) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seenPages[pageno]; ok {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	ch, ok := t.pending[pageno]
	if !ok {
		ch = make(chan struct{})
		t.pending[pageno] = ch
	}
	return ch
}

// AwaitArrival 等待该页到达, 超时或 ctx 结束返回 false
func (t *Tracker) AwaitArrival(ctx context.Context, pageno string, timeout time.Duration) bool {
	ch := t.Expect(pageno)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// CurrentMaxPage 已见页中最大的数字页码, 默认 1
func (t *Tracker) CurrentMaxPage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.maxPage
}

func (t *Tracker) Stagnation() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stagnation
}

func (t *Tracker) BumpStagnation() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stagnation++
	return t.stagnation
}

func (t *Tracker) ResetStagnation() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stagnation = 0
}

func (t *Tracker) SeenJob(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seenJobs[jobID]
	return ok
}

// MarkJob 首次出现返回 true
func (t *Tracker) MarkJob(jobID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seenJobs[jobID]; ok {
		return false
	}
	t.seenJobs[jobID] = struct{}{}
	return true
}

func (t *Tracker) FirstPageReady() <-chan struct{} {
	return t.firstPage
}

// ReleaseFirstPage 幂等
func (t *Tracker) ReleaseFirstPage() {
	t.firstPageOnce.Do(func() { close(t.firstPage) })
}

// SetTotal 依据站点给出的总数与首页条数推算末页, 无法解析时保持未知
func (t *Tracker) SetTotal(totalCount string, pageSize int) {
	total, err := strconv.Atoi(strings.TrimSpace(totalCount))
	if err != nil || total <= 0 || pageSize <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastPage = (total + pageSize - 1) / pageSize
}

// LastPage 推算出的末页, 未知时 ok 为 false
func (t *Tracker) LastPage() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastPage, t.lastPage > 0
}

// Snapshot 进度快照
type Snapshot struct {
	Pages      int
	Jobs       int
	MaxPage    int
	Stagnation int
}

func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Pages:      len(t.seenPages),
		Jobs:       len(t.seenJobs),
		MaxPage:    t.maxPage,
		Stagnation: t.stagnation,
	}
}
