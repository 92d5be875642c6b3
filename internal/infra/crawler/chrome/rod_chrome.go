package chrome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/config"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/options"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/types"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	lru "github.com/hashicorp/golang-lru/v2"
)

type rodCrawler struct {
	browser *rod.Browser
	page    *rod.Page
	dom     *rodDOM
	// requestCache requestID -> 已收到响应头、等待响应体的请求
	requestCache *lru.Cache[proto.NetworkRequestID, *types.NetworkResponse]
	log          logger.Logger
}

// InitRodCrawler 启动浏览器, 创建 stealth 页面并恢复登录态
func InitRodCrawler(ctx context.Context, cfg *config.Config, state *session.StorageState, log logger.Logger) (ChromeCrawler, error) {
	l := options.CreateLauncher(false,
		options.WithBin(cfg.Rod.Bin),
		options.WithUserDataDir(cfg.Rod.UserDataDir),
		options.WithHeadless(cfg.Rod.Headless),
		options.WithDisableBlinkFeatures(cfg.Rod.DisableBlinkFeatures),
		options.WithIncognito(cfg.Rod.Incognito),
		options.WithDisableDevShmUsage(cfg.Rod.DisableDevShmUsage),
		options.WithNoSandbox(cfg.Rod.NoSandbox),
		options.WithUserAgent(cfg.Rod.UserAgent),
		options.WithLeakless(cfg.Rod.Leakless),
	).Context(ctx)

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}
	log.Debug("浏览器已启动", logger.String("control_url", controlURL))

	browser := rod.New().ControlURL(controlURL)
	if err := connectOrKill(l, browser.Connect); err != nil {
		return nil, err
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}

	cacheSize := cfg.Rod.ListenerCacheSize
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[proto.NetworkRequestID, *types.NetworkResponse](cacheSize)
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("create request cache: %w", err)
	}

	rc := &rodCrawler{
		browser:      browser,
		page:         page,
		dom:          &rodDOM{page: page},
		requestCache: cache,
		log:          log,
	}
	if err := rc.restoreState(state); err != nil {
		_ = browser.Close()
		return nil, err
	}
	return rc, nil
}

// connectOrKill 连接失败时结束已启动的浏览器进程
func connectOrKill(l interface{ Kill() }, connect func() error) error {
	if err := connect(); err != nil {
		l.Kill()
		return fmt.Errorf("连接浏览器失败: %w", err)
	}
	return nil
}

func (rc *rodCrawler) Close() error {
	return rc.browser.Close()
}

func (rc *rodCrawler) DOM() DOM {
	return rc.dom
}

func (rc *rodCrawler) Navigate(ctx context.Context, url string) error {
	page := rc.page.Context(ctx)
	wait := page.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("导航失败: %w", err)
	}
	wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("等待 DOMContentLoaded: %w", err)
	}
	return nil
}

func (rc *rodCrawler) Screenshot(ctx context.Context, path string) error {
	img, err := rc.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("截图失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	return os.WriteFile(path, img, 0o644)
}

func (rc *rodCrawler) StorageState(ctx context.Context) (*session.StorageState, error) {
	page := rc.page.Context(ctx)
	res, err := proto.NetworkGetCookies{}.Call(page)
	if err != nil {
		return nil, fmt.Errorf("读取 cookies 失败: %w", err)
	}
	state := &session.StorageState{Cookies: fromRodCookies(res.Cookies)}

	obj, err := page.Eval(localStorageDumpJS)
	if err != nil {
		rc.log.Warn("读取 localStorage 失败, 仅保存 cookies", logger.Error(err))
		return state, nil
	}
	var origin session.OriginState
	if err := obj.Value.Unmarshal(&origin); err != nil {
		rc.log.Warn("localStorage 解析失败", logger.Error(err))
		return state, nil
	}
	if origin.Origin != "" && origin.Origin != "null" {
		state.Origins = []session.OriginState{origin}
	}
	return state, nil
}

func (rc *rodCrawler) restoreState(state *session.StorageState) error {
	if state.Empty() {
		return nil
	}
	if len(state.Cookies) > 0 {
		if err := rc.page.SetCookies(toRodCookies(state.Cookies)); err != nil {
			return fmt.Errorf("恢复 cookies 失败: %w", err)
		}
	}
	for _, origin := range state.Origins {
		if len(origin.LocalStorage) == 0 {
			continue
		}
		script, err := localStorageRestoreJS(origin)
		if err != nil {
			return err
		}
		if _, err := rc.page.EvalOnNewDocument(script); err != nil {
			return fmt.Errorf("恢复 localStorage 失败: %w", err)
		}
	}
	rc.log.Info("已恢复登录态", logger.Int("cookies", len(state.Cookies)), logger.Int("origins", len(state.Origins)))
	return nil
}

var errNotRodElement = errors.New("element does not belong to the rod page")
