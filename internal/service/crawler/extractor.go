package crawler

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/domain/entity"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/domain/model"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/types"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/metrics"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/persistence/jsonl"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/param"
)

// Outcome 单个响应的处理结果
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeOutOfScope
	OutcomeDuplicatePage
	OutcomeMalformed
	OutcomeServerFailure
	OutcomeAccepted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeIgnored:
		return "ignored"
	case OutcomeOutOfScope:
		return "out_of_scope"
	case OutcomeDuplicatePage:
		return "duplicate_page"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeServerFailure:
		return "server_failure"
	case OutcomeAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}

const capturedAtLayout = "2006-01-02T15:04:05"

// Extractor 把拦截到的搜索响应转换为分页记录与职位记录. 只在响应消费协程中串行调用
type Extractor struct {
	apiPattern string
	keyword    string
	jobArea    string
	tracker    *Tracker
	sinks      *Sinks
	log        logger.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewExtractor(p *param.Crawl, tracker *Tracker, sinks *Sinks, log logger.Logger, m *metrics.Metrics) *Extractor {
	return &Extractor{
		apiPattern: p.APIPattern,
		keyword:    p.Keyword,
		jobArea:    p.JobArea,
		tracker:    tracker,
		sinks:      sinks,
		log:        log,
		metrics:    m,
		now:        time.Now,
	}
}

func (e *Extractor) Process(resp *types.NetworkResponse) Outcome {
	outcome := e.process(resp)
	e.metrics.IncResponse(outcome.String())
	return outcome
}

func (e *Extractor) process(resp *types.NetworkResponse) Outcome {
	if !strings.Contains(resp.Url, e.apiPattern) {
		return OutcomeIgnored
	}
	u, err := url.Parse(resp.Url)
	if err != nil {
		e.log.Debug("无法解析响应 URL", logger.String("url", resp.Url), logger.Error(err))
		return OutcomeIgnored
	}
	q := u.Query()
	kw := strings.TrimSpace(q.Get("keyword"))
	pageno := strings.TrimSpace(q.Get("pageno"))
	jobArea := strings.TrimSpace(q.Get("jobarea"))

	if kw != "" && kw != e.keyword {
		return OutcomeOutOfScope
	}
	if e.jobArea != "" && jobArea != "" && jobArea != e.jobArea {
		return OutcomeOutOfScope
	}
	if pageno == "" {
		return OutcomeOutOfScope
	}
	if e.tracker.SeenPage(pageno) {
		return OutcomeDuplicatePage
	}

	var payload entity.SearchResponse
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		n := e.tracker.BumpStagnation()
		e.metrics.SetStagnation(n)
		e.log.Warn("响应 JSON 解析失败", logger.String("pageno", pageno), logger.Int("status", resp.Status), logger.Int("no_progress", n), logger.Error(err))
		e.diagnose(jsonl.Diagnostic{
			Hint:        jsonl.HintJSONParseFailed,
			URL:         resp.Url,
			Status:      resp.Status,
			ContentType: resp.ContentType,
			BodyHead:    string(resp.Body),
			Pageno:      pageno,
		})
		return OutcomeMalformed
	}
	if !payload.OK() {
		n := e.tracker.BumpStagnation()
		e.metrics.SetStagnation(n)
		e.log.Warn("接口返回失败状态", logger.String("pageno", pageno), logger.String("status", payload.Status.String()), logger.String("message", payload.Message.String()), logger.Int("no_progress", n))
		e.diagnose(jsonl.Diagnostic{
			Hint:        jsonl.HintStatusNotOne,
			URL:         resp.Url,
			StatusField: payload.Status.String(),
			Message:     payload.Message.String(),
			Pageno:      pageno,
		})
		return OutcomeServerFailure
	}

	capturedAt := e.now().Format(capturedAtLayout)
	result := payload.Page()
	items := result.Items
	requestID := result.RequestID
	totalCount := result.TotalCount
	for _, skipped := range result.Skipped {
		e.log.Warn("跳过无法解码的职位条目", logger.String("pageno", pageno), logger.Int("index", skipped.Index), logger.Error(skipped.Err))
	}

	page := &model.PageRecord{
		CapturedAt:    capturedAt,
		Keyword:       e.keyword,
		JobArea:       e.jobArea,
		Pageno:        pageno,
		PageRequestID: requestID,
		ItemCount:     result.Len(),
		TotalCount:    totalCount,
		URL:           resp.Url,
	}
	if err := e.sinks.Pages.Write(page); err != nil {
		e.log.Error("写入分页记录失败", logger.String("pageno", pageno), logger.Error(err))
	}
	e.metrics.IncPages()

	prov := entity.Provenance{
		CapturedAt:    capturedAt,
		Keyword:       e.keyword,
		Pageno:        pageno,
		PageRequestID: requestID,
		SourceURL:     resp.Url,
		JobAreaCode:   e.jobArea,
	}
	newJobs := 0
	for i := range items {
		item := &items[i]
		id := item.DedupKey()
		if id == "" || e.tracker.SeenJob(id) {
			continue
		}
		rec := item.ToRecord(prov)
		// 写入成功后才记为已见, 之后重放的响应还能补写
		if err := e.sinks.Jobs.Write(rec); err != nil {
			e.log.Error("写入职位记录失败", logger.String("job_id", id), logger.Error(err))
			continue
		}
		e.tracker.MarkJob(id)
		if e.sinks.Index != nil {
			e.sinks.Index.Enqueue(rec)
		}
		newJobs++
	}
	e.metrics.AddJobs(newJobs)

	e.tracker.RecordArrival(pageno)
	if newJobs > 0 {
		e.tracker.ResetStagnation()
	} else {
		e.tracker.BumpStagnation()
	}
	stagnation := e.tracker.Stagnation()
	e.metrics.SetStagnation(stagnation)

	if pageno == "1" && result.Len() > 0 {
		e.tracker.SetTotal(totalCount, result.Len())
		e.tracker.ReleaseFirstPage()
	}

	e.log.Info("页面已保存",
		logger.String("pageno", pageno),
		logger.Int("items", len(items)),
		logger.Int("new_jobs", newJobs),
		logger.String("total", totalCount),
		logger.Int("no_progress", stagnation))
	return OutcomeAccepted
}

func (e *Extractor) diagnose(d jsonl.Diagnostic) {
	if err := e.sinks.diagnose(d); err != nil {
		e.log.Error("写入诊断日志失败", logger.String("hint", d.Hint), logger.Error(err))
	}
}
