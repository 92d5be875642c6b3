package main

import (
	"fmt"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/config"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// app 各子命令共享的配置与日志
type app struct {
	defaults []byte
	cfgFile  string
	debug    bool
	flags    overrides

	cfg *config.Config
	log logger.Logger
}

// overrides 命令行参数, 只有显式传入的才覆盖配置
type overrides struct {
	keyword         string
	areaName        string
	maxPageActions  int
	minDelayS       int
	maxDelayS       int
	clickTimeoutMs  int
	noProgressLimit int
	nextBtnSelector string
	nextBtnXPath    string
	statePath       string
	outJobsJSONL    string
	outPagesJSONL   string
	cityDictPath    string
	cityDictURL     string
	headless        bool
}

func newRootCmd(defaults []byte) *cobra.Command {
	a := &app{defaults: defaults}
	root := &cobra.Command{
		Use:           "yjs-scraper",
		Short:         "应届生求职网职位爬取",
		Long:          "通过真实浏览器翻页并被动拦截搜索接口响应, 将职位与分页记录写入 JSONL.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	a.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newCrawlCmd(a),
		newLoginCmd(a),
		newExportCmd(a),
		newAreaCmd(a),
	)
	return root
}

func (a *app) bindFlags(pf *pflag.FlagSet) {
	pf.StringVar(&a.cfgFile, "config", "", "config file merged over the built-in defaults")
	pf.BoolVar(&a.debug, "debug", false, "enable debug logging")
	pf.StringVar(&a.flags.keyword, "keyword", "", "search keyword")
	pf.StringVar(&a.flags.areaName, "area-name", "", "area name: 山东/山东省/青岛/全国")
	pf.IntVar(&a.flags.maxPageActions, "max-page-actions", 0, "max next-page actions")
	pf.IntVar(&a.flags.minDelayS, "min-delay-s", 0, "min delay between actions (sec)")
	pf.IntVar(&a.flags.maxDelayS, "max-delay-s", 0, "max delay between actions (sec)")
	pf.IntVar(&a.flags.clickTimeoutMs, "click-timeout-ms", 0, "click timeout (ms)")
	pf.IntVar(&a.flags.noProgressLimit, "no-progress-limit", 0, "stop after N no-progress actions")
	pf.StringVar(&a.flags.nextBtnSelector, "next-btn-selector", "", "CSS selector for the next button")
	pf.StringVar(&a.flags.nextBtnXPath, "next-btn-xpath", "", "XPath for the next button (fallback)")
	pf.StringVar(&a.flags.statePath, "state-path", "", "session storage state path")
	pf.StringVar(&a.flags.outJobsJSONL, "out-jobs-jsonl", "", "jobs JSONL output (derived when omitted)")
	pf.StringVar(&a.flags.outPagesJSONL, "out-pages-jsonl", "", "pages JSONL output (derived when omitted)")
	pf.StringVar(&a.flags.cityDictPath, "city-dict-path", "", "local dd_city.json path")
	pf.StringVar(&a.flags.cityDictURL, "city-dict-url", "", "dd_city.json download URL")
	pf.BoolVar(&a.flags.headless, "headless", false, "run the crawl browser headless")
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.ParseConfig(a.defaults, a.cfgFile)
	if err != nil {
		return err
	}
	a.applyOverrides(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if a.debug {
		cfg.Log.Level = "debug"
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.cfg = cfg
	a.log = log
	return nil
}

func (a *app) applyOverrides(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	o := a.flags
	if fs.Changed("keyword") {
		cfg.Crawl.Keyword = o.keyword
	}
	if fs.Changed("area-name") {
		cfg.Crawl.AreaName = o.areaName
	}
	if fs.Changed("max-page-actions") {
		cfg.Crawl.MaxPageActions = o.maxPageActions
	}
	if fs.Changed("min-delay-s") {
		cfg.Crawl.MinDelaySeconds = o.minDelayS
	}
	if fs.Changed("max-delay-s") {
		cfg.Crawl.MaxDelaySeconds = o.maxDelayS
	}
	if fs.Changed("click-timeout-ms") {
		cfg.Crawl.ClickTimeoutMs = o.clickTimeoutMs
	}
	if fs.Changed("no-progress-limit") {
		cfg.Crawl.NoProgressLimit = o.noProgressLimit
	}
	if fs.Changed("next-btn-selector") {
		cfg.Crawl.NextBtnSelector = o.nextBtnSelector
	}
	if fs.Changed("next-btn-xpath") {
		cfg.Crawl.NextBtnXPath = o.nextBtnXPath
	}
	if fs.Changed("state-path") {
		cfg.Session.StatePath = o.statePath
	}
	if fs.Changed("out-jobs-jsonl") {
		cfg.Output.JobsJSONL = o.outJobsJSONL
	}
	if fs.Changed("out-pages-jsonl") {
		cfg.Output.PagesJSONL = o.outPagesJSONL
	}
	if fs.Changed("city-dict-path") {
		cfg.Area.CityDictPath = o.cityDictPath
	}
	if fs.Changed("city-dict-url") {
		cfg.Area.CityDictURL = o.cityDictURL
	}
	if fs.Changed("headless") {
		cfg.Rod.Headless = o.headless
	}
}
