package crawler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/chrome"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/types"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/metrics"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/persistence/jsonl"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/param"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State 一次爬取尝试的状态
type State int

const (
	StateInit State = iota
	StateAwaitingFirstPage
	StatePaginating
	StateCompleted
	StateStagnated
	StateExhausted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateAwaitingFirstPage:
		return "awaiting_first_page"
	case StatePaginating:
		return "paginating"
	case StateCompleted:
		return "completed"
	case StateStagnated:
		return "stagnated"
	case StateExhausted:
		return "exhausted"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

const (
	respChanSize        = 64
	storageStateTimeout = 10 * time.Second
	screenshotTimeout   = 10 * time.Second
)

// Result 一次尝试的结果. State 保留循环的终止状态, Err 非空表示这次尝试算作失败
type Result struct {
	AttemptID  string
	State      State
	MaxPage    int
	Pages      int
	Jobs       int
	Stagnation int
	Actions    int
	Err        error
}

// Succeeded 翻过了第一页才算成功
func (r *Result) Succeeded() bool {
	return r != nil && r.Err == nil && r.MaxPage > 1
}

// BrowserFactory 用给定登录态打开浏览器, state 为 nil 表示匿名
type BrowserFactory func(ctx context.Context, state *session.StorageState) (chrome.ChromeCrawler, error)

type SessionStore interface {
	Restore() (*session.StorageState, error)
	Persist(state *session.StorageState) error
}

// Orchestrator 驱动一次完整的分页爬取尝试
type Orchestrator struct {
	param       *param.Crawl
	openBrowser BrowserFactory
	openSinks   SinkFactory
	sessions    SessionStore
	pacer       Pacer
	log         logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewOrchestrator(p *param.Crawl, openBrowser BrowserFactory, openSinks SinkFactory, sessions SessionStore, pacer Pacer, log logger.Logger, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		param:       p,
		openBrowser: openBrowser,
		openSinks:   openSinks,
		sessions:    sessions,
		pacer:       pacer,
		log:         log,
		metrics:     m,
		now:         time.Now,
	}
}

// Crawl 执行一次尝试. 返回的 Result 总是非空; 未翻过第一页时返回 ErrSessionInvalid
func (o *Orchestrator) Crawl(ctx context.Context) (*Result, error) {
	res := &Result{AttemptID: uuid.NewString(), State: StateInit}
	log := o.log.With(logger.String("attempt_id", res.AttemptID))
	tracker := NewTracker()

	err := o.run(ctx, log, tracker, res)

	snap := tracker.Snapshot()
	res.MaxPage = snap.MaxPage
	res.Pages = snap.Pages
	res.Jobs = snap.Jobs
	res.Stagnation = snap.Stagnation

	switch {
	case err != nil:
		res.State = StateFailed
		res.Err = err
	case res.MaxPage <= 1:
		res.Err = ErrSessionInvalid
	}
	log.Info("本次尝试结束",
		logger.String("state", res.State.String()),
		logger.Int("max_page", res.MaxPage),
		logger.Int("pages", res.Pages),
		logger.Int("jobs", res.Jobs),
		logger.Int("actions", res.Actions),
		logger.Error(res.Err))
	return res, res.Err
}

// run 持有本次尝试的全部资源, 退出顺序: 停止消费协程, 保存登录态, 关闭浏览器, 关闭输出
func (o *Orchestrator) run(ctx context.Context, log logger.Logger, tracker *Tracker, res *Result) error {
	state, err := o.sessions.Restore()
	switch {
	case errors.Is(err, session.ErrNotFound):
		log.Warn("未找到登录态, 以匿名方式访问")
		state = nil
	case err != nil:
		return fmt.Errorf("restore session: %w", err)
	}

	sinks, err := o.openSinks()
	if err != nil {
		return fmt.Errorf("open sinks: %w", err)
	}
	defer func() {
		if err := sinks.Close(context.WithoutCancel(ctx)); err != nil {
			log.Error("关闭输出失败", logger.Error(err))
		}
	}()

	browser, err := o.openBrowser(ctx, state)
	if err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Warn("关闭浏览器失败", logger.Error(err))
		}
	}()
	defer o.persistSession(ctx, browser, log)

	listenCtx, stopListen := context.WithCancel(ctx)
	respChan := make(chan *types.NetworkResponse, respChanSize)
	extractor := NewExtractor(o.param, tracker, sinks, log, o.metrics)
	g, gctx := errgroup.WithContext(listenCtx)
	g.Go(func() error {
		consume(gctx, respChan, extractor)
		return nil
	})
	defer func() {
		stopListen()
		_ = g.Wait()
	}()

	if err := browser.SetNetworkListener(listenCtx, o.param.APIPattern, respChan); err != nil {
		return fmt.Errorf("set network listener: %w", err)
	}

	res.State = StateAwaitingFirstPage
	if err := o.navigate(ctx, browser, log); err != nil {
		return err
	}
	if err := browser.DOM().DismissOverlays(ctx); err != nil {
		log.Warn("初始化页面焦点失败", logger.Error(err))
	}
	if err := o.awaitFirstPage(ctx, tracker); err != nil {
		return err
	}
	log.Info("首页数据已到达", logger.Int("no_progress", tracker.Stagnation()))

	res.State = StatePaginating
	clicker := NewClicker(browser.DOM(), o.param, log, o.metrics)
	for step := 1; step <= o.param.MaxPageActions; step++ {
		if st, stop := o.stopState(tracker); stop {
			res.State = st
			break
		}
		res.Actions = step
		if err := o.step(ctx, step, browser, clicker, tracker, sinks, log); err != nil {
			return err
		}
	}
	if res.State == StatePaginating {
		if st, stop := o.stopState(tracker); stop {
			res.State = st
		} else {
			res.State = StateExhausted
		}
	}
	return nil
}

// consume 串行处理拦截到的响应, ctx 结束后把缓冲区中剩余的响应处理完
func consume(ctx context.Context, respChan <-chan *types.NetworkResponse, extractor *Extractor) {
	for {
		select {
		case resp := <-respChan:
			extractor.Process(resp)
		case <-ctx.Done():
			for {
				select {
				case resp := <-respChan:
					extractor.Process(resp)
				default:
					return
				}
			}
		}
	}
}

func (o *Orchestrator) stopState(tracker *Tracker) (State, bool) {
	if tracker.Stagnation() >= o.param.StagnationLimit {
		return StateStagnated, true
	}
	if last, ok := tracker.LastPage(); ok && tracker.CurrentMaxPage() >= last {
		return StateCompleted, true
	}
	return StatePaginating, false
}

// step 一次翻页动作: 登记等待句柄, 点击, 等待到达, 节流
func (o *Orchestrator) step(ctx context.Context, step int, browser chrome.ChromeCrawler, clicker *Clicker, tracker *Tracker, sinks *Sinks, log logger.Logger) error {
	target := tracker.CurrentMaxPage() + 1
	pageno := strconv.Itoa(target)
	tracker.Expect(pageno)

	clicked, err := clicker.ClickNext(ctx)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		log.Warn("点击下一页失败", logger.Int("step", step), logger.Error(err))
	}

	switch {
	case errors.Is(err, ErrClickTimeout):
		// 派发失败按未到达处理
		o.noArrival(ctx, step, target, browser, tracker, sinks, log, err.Error())
	case !clicked:
		n := tracker.BumpStagnation()
		o.metrics.SetStagnation(n)
		log.Warn("下一页点击未派发", logger.Int("step", step), logger.Int("no_progress", n))
		o.diagnose(sinks, log, jsonl.Diagnostic{Hint: jsonl.HintClickNotSent, Pageno: pageno})
	default:
		start := o.now()
		if tracker.AwaitArrival(ctx, pageno, o.param.ArrivalTimeout) {
			o.metrics.ObserveArrival(o.now().Sub(start))
			log.Debug("目标页已到达", logger.Int("step", step), logger.String("pageno", pageno))
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		o.noArrival(ctx, step, target, browser, tracker, sinks, log, "")
	}

	return o.pacer.Wait(ctx, tracker.Stagnation())
}

// noArrival 目标页未到达: 停滞 +1, 截图并记录诊断
func (o *Orchestrator) noArrival(ctx context.Context, step, target int, browser chrome.ChromeCrawler, tracker *Tracker, sinks *Sinks, log logger.Logger, message string) {
	pageno := strconv.Itoa(target)
	n := tracker.BumpStagnation()
	o.metrics.SetStagnation(n)
	shot := o.screenshot(ctx, browser, target, log)
	log.Warn("等待目标页超时", logger.Int("step", step), logger.String("pageno", pageno), logger.Int("no_progress", n), logger.String("screenshot", shot))
	o.diagnose(sinks, log, jsonl.Diagnostic{Hint: jsonl.HintArrivalTimeout, Pageno: pageno, Screenshot: shot, Message: message})
}

// navigate 最多重试 NavigationAttempts 次, 两次之间等待 min(max, base*i)
func (o *Orchestrator) navigate(ctx context.Context, browser chrome.ChromeCrawler, log logger.Logger) error {
	var lastErr error
	for i := 1; i <= o.param.NavigationAttempts; i++ {
		navCtx, cancel := ctx, context.CancelFunc(func() {})
		if o.param.NavigationTimeout > 0 {
			navCtx, cancel = context.WithTimeout(ctx, o.param.NavigationTimeout)
		}
		err := browser.Navigate(navCtx, o.param.SearchURL)
		cancel()
		if err == nil {
			log.Info("搜索页已打开", logger.String("url", o.param.SearchURL), logger.Int("attempt", i))
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		lastErr = err
		log.Warn("导航失败", logger.Int("attempt", i), logger.Error(err))
		if i == o.param.NavigationAttempts {
			break
		}
		backoff := min(o.param.NavigationBackoffMax, o.param.NavigationBackoff*time.Duration(i))
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrNavigation, o.param.NavigationAttempts, lastErr)
}

func (o *Orchestrator) awaitFirstPage(ctx context.Context, tracker *Tracker) error {
	timer := time.NewTimer(o.param.FirstPageTimeout)
	defer timer.Stop()
	select {
	case <-tracker.FirstPageReady():
		return nil
	case <-timer.C:
		return fmt.Errorf("%w (%s)", ErrFirstPageTimeout, o.param.FirstPageTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// screenshot 失败只记录日志, 返回写入的路径
func (o *Orchestrator) screenshot(ctx context.Context, browser chrome.ChromeCrawler, target int, log logger.Logger) string {
	path := filepath.Join(o.param.DebugDir, fmt.Sprintf("timeout_p%d_%d.png", target, o.now().Unix()))
	shotCtx, cancel := context.WithTimeout(ctx, screenshotTimeout)
	defer cancel()
	if err := browser.Screenshot(shotCtx, path); err != nil {
		log.Warn("截图失败", logger.String("path", path), logger.Error(err))
		return ""
	}
	return path
}

func (o *Orchestrator) persistSession(ctx context.Context, browser chrome.ChromeCrawler, log logger.Logger) {
	stateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storageStateTimeout)
	defer cancel()
	state, err := browser.StorageState(stateCtx)
	if err != nil {
		log.Warn("读取登录态失败", logger.Error(err))
		return
	}
	if err := o.sessions.Persist(state); err != nil {
		log.Warn("保存登录态失败", logger.Error(err))
		return
	}
	log.Debug("登录态已保存", logger.Int("cookies", len(state.Cookies)))
}

func (o *Orchestrator) diagnose(sinks *Sinks, log logger.Logger, d jsonl.Diagnostic) {
	if err := sinks.diagnose(d); err != nil {
		log.Error("写入诊断日志失败", logger.String("hint", d.Hint), logger.Error(err))
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
