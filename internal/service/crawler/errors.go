package crawler

import "errors"

var (
	// ErrNavigation 多次导航均失败
	ErrNavigation = errors.New("navigation failed")
	// ErrFirstPageTimeout 首页数据未在时限内到达
	ErrFirstPageTimeout = errors.New("first page did not arrive in time")
	// ErrClickTimeout 点击未能在时限内派发
	ErrClickTimeout = errors.New("click dispatch timed out")
	// ErrSessionInvalid 爬取未能翻过第一页, 视为登录态失效
	ErrSessionInvalid = errors.New("crawl did not advance past the first page")
	// ErrFatal 重新登录后仍然失败
	ErrFatal = errors.New("crawl failed after session recovery")
)
