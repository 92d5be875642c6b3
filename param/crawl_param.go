package param

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/config"
)

// Crawl 一次分页爬取的参数
type Crawl struct {
	Keyword  string `json:"keyword"`
	AreaName string `json:"area_name"`
	// JobArea 地区编码, 空串表示全国
	JobArea    string `json:"jobarea"`
	SearchURL  string `json:"search_url"`
	APIPattern string `json:"api_pattern"`

	MaxPageActions  int           `json:"max_page_actions"`
	MinDelay        time.Duration `json:"min_delay"`
	MaxDelay        time.Duration `json:"max_delay"`
	ClickTimeout    time.Duration `json:"click_timeout"`
	StagnationLimit int           `json:"stagnation_limit"`
	NextSelector    string        `json:"next_selector"`
	NextXPath       string        `json:"next_xpath"`
	ScrollOffset    int           `json:"scroll_offset"`

	NavigationAttempts   int           `json:"navigation_attempts"`
	NavigationTimeout    time.Duration `json:"navigation_timeout"`
	NavigationBackoff    time.Duration `json:"navigation_backoff"`
	NavigationBackoffMax time.Duration `json:"navigation_backoff_max"`
	FirstPageTimeout     time.Duration `json:"first_page_timeout"`
	ArrivalTimeout       time.Duration `json:"arrival_timeout"`

	DebugDir string `json:"debug_dir"`
}

// NewCrawl 由配置与解析后的地区编码构造参数
func NewCrawl(cfg *config.Config, jobArea string) *Crawl {
	c := cfg.Crawl
	return &Crawl{
		Keyword:              c.Keyword,
		AreaName:             c.AreaName,
		JobArea:              jobArea,
		SearchURL:            BuildSearchURL(cfg.Site.SearchBase, c.Keyword, jobArea),
		APIPattern:           cfg.Site.APIPattern,
		MaxPageActions:       c.MaxPageActions,
		MinDelay:             time.Duration(c.MinDelaySeconds) * time.Second,
		MaxDelay:             time.Duration(c.MaxDelaySeconds) * time.Second,
		ClickTimeout:         time.Duration(c.ClickTimeoutMs) * time.Millisecond,
		StagnationLimit:      c.NoProgressLimit,
		NextSelector:         c.NextBtnSelector,
		NextXPath:            c.NextBtnXPath,
		ScrollOffset:         c.ScrollOffsetPx,
		NavigationAttempts:   c.NavigationAttempts,
		NavigationTimeout:    time.Duration(c.NavigationTimeoutS) * time.Second,
		NavigationBackoff:    5 * time.Second,
		NavigationBackoffMax: 30 * time.Second,
		FirstPageTimeout:     time.Duration(c.FirstPageTimeoutS) * time.Second,
		ArrivalTimeout:       time.Duration(c.ArrivalTimeoutS) * time.Second,
		DebugDir:             c.DebugDir,
	}
}

func (c *Crawl) IsValid() bool {
	return c.Keyword != "" &&
		c.SearchURL != "" &&
		c.APIPattern != "" &&
		c.MaxPageActions > 0 &&
		c.MinDelay <= c.MaxDelay &&
		c.StagnationLimit > 0 &&
		c.NextSelector != "" &&
		c.NavigationAttempts > 0
}

// BuildSearchURL 有地区编码时使用 /jobs/search/?jobarea=..&keyword=.. 形式
func BuildSearchURL(base, keyword, jobArea string) string {
	base = strings.TrimRight(base, "/")
	if jobArea == "" {
		return base + "?keyword=" + url.QueryEscape(keyword)
	}
	return base + "/?jobarea=" + url.QueryEscape(jobArea) + "&keyword=" + url.QueryEscape(keyword)
}

var (
	unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]+`)
	whitespace  = regexp.MustCompile(`\s+`)
)

const maxNameLen = 120

// SafeFilename 替换文件系统不安全字符与空白, 截断到 120 个字符
func SafeFilename(s string) string {
	s = unsafeChars.ReplaceAllString(strings.TrimSpace(s), "_")
	s = whitespace.ReplaceAllString(s, "_")
	if r := []rune(s); len(r) > maxNameLen {
		s = string(r[:maxNameLen])
	}
	return s
}

// OutputFiles 职位与分页输出文件
type OutputFiles struct {
	Jobs  string
	Pages string
}

// DefaultOutputFiles yingjiesheng_jobs_<kw>_<area>.jsonl, 全国时地区为 "全国"
func DefaultOutputFiles(dir, keyword, areaName string, nationwide bool) OutputFiles {
	area := areaName
	if nationwide || strings.TrimSpace(area) == "" {
		area = "全国"
	}
	suffix := SafeFilename(keyword) + "_" + SafeFilename(area) + ".jsonl"
	return OutputFiles{
		Jobs:  filepath.Join(dir, "yingjiesheng_jobs_"+suffix),
		Pages: filepath.Join(dir, "yingjiesheng_pages_"+suffix),
	}
}
