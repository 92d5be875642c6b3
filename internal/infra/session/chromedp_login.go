package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/config"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const localStorageJS = `(() => {
	const out = [];
	for (let i = 0; i < localStorage.length; i++) {
		const k = localStorage.key(i);
		out.push({name: k, value: localStorage.getItem(k)});
	}
	return JSON.stringify(out);
})()`

type chromedpLogin struct {
	loginURL string
	opts     []chromedp.ExecAllocatorOption
	prompt   io.Writer
	confirm  io.Reader
	log      logger.Logger
}

// InitChromedpLogin 打开一个可见的 chromedp 窗口, 等待用户手动登录后按回车
func InitChromedpLogin(cfg *config.Config, prompt io.Writer, confirm io.Reader, log logger.Logger) Authenticator {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", false),
		chromedp.Flag("no-sandbox", cfg.Chromedp.NoSandbox),
	)
	if cfg.Chromedp.DisableBlinkFeatures != "" {
		opts = append(opts, chromedp.Flag("disable-blink-features", cfg.Chromedp.DisableBlinkFeatures))
	}
	if cfg.Chromedp.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.Chromedp.UserDataDir))
	}
	if cfg.Chromedp.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Chromedp.UserAgent))
	}
	return &chromedpLogin{
		loginURL: cfg.Site.LoginURL,
		opts:     opts,
		prompt:   prompt,
		confirm:  confirm,
		log:      log,
	}
}

func (cl *chromedpLogin) Login(ctx context.Context) (*StorageState, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, cl.opts...)
	defer cancelAlloc()
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)
	defer cancelPage()

	if err := chromedp.Run(pageCtx, network.Enable(), chromedp.Navigate(cl.loginURL)); err != nil {
		return nil, fmt.Errorf("open login page: %w", err)
	}

	fmt.Fprintf(cl.prompt, "\n请在打开的浏览器中完成登录 (%s), 确认已登录后回到终端按回车继续...\n", cl.loginURL)
	if err := waitForOperator(ctx, cl.confirm); err != nil {
		return nil, err
	}

	var (
		cookies   []*network.Cookie
		origin    string
		localJSON string
	)
	err := chromedp.Run(pageCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().Do(ctx)
			return err
		}),
		chromedp.Evaluate(`location.origin`, &origin),
		chromedp.Evaluate(localStorageJS, &localJSON),
	)
	if err != nil {
		return nil, fmt.Errorf("capture login state: %w", err)
	}

	state := &StorageState{Cookies: make([]Cookie, 0, len(cookies))}
	for _, c := range cookies {
		state.Cookies = append(state.Cookies, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	var local []NameValue
	if localJSON != "" {
		if err := json.Unmarshal([]byte(localJSON), &local); err != nil {
			cl.log.Warn("localStorage 解析失败, 仅保存 cookies", logger.Error(err))
		}
	}
	if origin != "" {
		state.Origins = []OriginState{{Origin: origin, LocalStorage: local}}
	}
	cl.log.Info("已捕获登录态", logger.Int("cookies", len(state.Cookies)), logger.Int("local_storage", len(local)))
	return state, nil
}

// waitForOperator 等待终端回车, ctx 取消时提前返回
func waitForOperator(ctx context.Context, r io.Reader) error {
	done := make(chan error, 1)
	go func() {
		_, err := bufio.NewReader(r).ReadString('\n')
		if err == io.EOF {
			err = nil
		}
		done <- err
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return fmt.Errorf("read operator confirmation: %w", err)
		}
		return nil
	}
}
