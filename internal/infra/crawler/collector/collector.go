package collector

import "github.com/gocolly/colly/v2"

// CollyCrawler 基于 colly 的静态资源抓取器
type CollyCrawler interface {
	Visit(url string) error
	Wait()
	OnRequest(callback func(r *colly.Request))
	OnResponse(callback func(r *colly.Response))
	OnError(callback func(r *colly.Response, err error))
}
