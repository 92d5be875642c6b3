package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/config"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/areacode"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/chrome"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/embedding"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/metrics"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/persistence/es"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/service/crawler"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/param"
	"github.com/spf13/cobra"
)

func newCrawlCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "登录 (如需要) 后翻页爬取, 失败时重新登录再试一次",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCrawl(cmd, a.cfg, a.log)
		},
	}
}

func runCrawl(cmd *cobra.Command, cfg *config.Config, log logger.Logger) error {
	ctx := cmd.Context()

	resolver, err := loadResolver(cfg)
	if err != nil {
		return err
	}
	jobArea, err := resolver.Resolve(cfg.Crawl.AreaName)
	if err != nil {
		printAreaError(cmd.ErrOrStderr(), err)
		return err
	}
	nationwide := jobArea == ""
	log.Info("地区已解析", logger.String("area", cfg.Crawl.AreaName), logger.String("jobarea", jobArea), logger.Bool("nationwide", nationwide))

	p := param.NewCrawl(cfg, jobArea)
	if !p.IsValid() {
		return errors.New("invalid crawl parameters")
	}
	files := outputFiles(cfg, nationwide)
	log.Info("输出文件", logger.String("jobs", files.Jobs), logger.String("pages", files.Pages), logger.String("url", p.SearchURL))

	m := metrics.New()
	m.Serve(ctx, cfg.Metrics.ListenAddr, log)

	var index crawler.JobIndexer
	if cfg.Elasticsearch.Enabled {
		ji, err := initJobIndex(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := ji.Close(context.WithoutCancel(ctx)); err != nil {
				log.Warn("关闭索引失败", logger.Error(err))
			}
		}()
		index = ji
	}

	store := session.NewStore(cfg.Session.StatePath)
	auth := session.InitChromedpLogin(cfg, cmd.OutOrStdout(), cmd.InOrStdin(), log)
	openBrowser := func(ctx context.Context, state *session.StorageState) (chrome.ChromeCrawler, error) {
		return chrome.InitRodCrawler(ctx, cfg, state, log)
	}

	orch := crawler.NewOrchestrator(
		p,
		openBrowser,
		crawler.JSONLSinks(files, badResponsesPath(cfg), index),
		store,
		crawler.NewRandomPacer(p.MinDelay, p.MaxDelay, log),
		log,
		m,
	)
	recovery := crawler.NewRecovery(orch.Crawl, store, auth, p.DebugDir, log)

	res, err := recovery.Run(ctx)
	renderSummary(cmd.OutOrStdout(), res, files)
	return err
}

// initJobIndex embedder 初始化失败时退化为不带向量的索引
func initJobIndex(ctx context.Context, cfg *config.Config, log logger.Logger) (*es.JobIndex, error) {
	var emb embedding.Embedder
	if cfg.Embedder.Enabled {
		e, err := embedding.InitEmbedder(ctx, cfg)
		if err != nil {
			log.Warn("初始化 Embedder 失败, 索引不带向量", logger.Error(err))
		} else {
			emb = e
		}
	}
	ji, err := es.InitJobIndex(ctx, cfg, emb, log)
	if err != nil {
		return nil, fmt.Errorf("init job index: %w", err)
	}
	return ji, nil
}

func loadResolver(cfg *config.Config) (*areacode.Resolver, error) {
	dict, err := areacode.Load(cfg.Area.CityDictPath, cfg.Area.CityDictURL, nil)
	if err != nil {
		return nil, err
	}
	return areacode.NewResolver(dict, cfg.Area.NationwideAliases), nil
}

// outputFiles 显式配置的路径优先, 否则按关键词与地区生成
func outputFiles(cfg *config.Config, nationwide bool) param.OutputFiles {
	files := param.DefaultOutputFiles(cfg.Output.Dir, cfg.Crawl.Keyword, cfg.Crawl.AreaName, nationwide)
	if cfg.Output.JobsJSONL != "" {
		files.Jobs = cfg.Output.JobsJSONL
	}
	if cfg.Output.PagesJSONL != "" {
		files.Pages = cfg.Output.PagesJSONL
	}
	return files
}

func badResponsesPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.Output.BadResponsesLog) {
		return cfg.Output.BadResponsesLog
	}
	return filepath.Join(cfg.Output.Dir, cfg.Output.BadResponsesLog)
}
