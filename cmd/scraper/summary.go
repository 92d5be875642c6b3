package main

import (
	"errors"
	"io"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/areacode"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/service/crawler"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/param"
	"github.com/jedib0t/go-pretty/v6/table"
)

var nowFunc = time.Now

// renderSummary 最后一次尝试的结果表
func renderSummary(w io.Writer, res *crawler.Result, files param.OutputFiles) {
	if res == nil {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("爬取结果")
	t.AppendRows([]table.Row{
		{"attempt", res.AttemptID},
		{"state", res.State.String()},
		{"max page", res.MaxPage},
		{"pages", res.Pages},
		{"jobs", res.Jobs},
		{"no progress", res.Stagnation},
		{"actions", res.Actions},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"jobs file", files.Jobs})
	t.AppendRow(table.Row{"pages file", files.Pages})
	if res.Err != nil {
		t.AppendRow(table.Row{"error", res.Err.Error()})
	}
	t.Render()
}

// printAreaError 歧义或未找到时列出候选
func printAreaError(w io.Writer, err error) {
	var (
		ambiguous *areacode.AmbiguousError
		notFound  *areacode.NotFoundError
	)
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	switch {
	case errors.As(err, &ambiguous):
		t.SetTitle("「" + ambiguous.Name + "」对应多个编码, 请改用更精确的名称")
		t.AppendHeader(table.Row{"Code"})
		for _, c := range ambiguous.Candidates {
			t.AppendRow(table.Row{c})
		}
	case errors.As(err, &notFound) && len(notFound.Suggestions) > 0:
		t.SetTitle("未找到「" + notFound.Name + "」, 相近的地区")
		t.AppendHeader(table.Row{"Name", "Code"})
		for _, s := range notFound.Suggestions {
			t.AppendRow(table.Row{s.Name, s.Code})
		}
	default:
		return
	}
	t.Render()
}
