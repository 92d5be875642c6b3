package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/domain/model"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
)

// Excel 依赖 BOM 识别 UTF-8
const utf8BOM = "\ufeff"

const maxLineSize = 8 << 20

type column struct {
	name  string
	value func(r *model.JobRecord) string
}

// 溯源字段、坐标与原始 property 不导出; jobareaCode 保留
var columns = []column{
	{"keyword", func(r *model.JobRecord) string { return r.Keyword }},
	{"jobTitle", func(r *model.JobRecord) string { return r.JobTitle }},
	{"companyName", func(r *model.JobRecord) string { return r.CompanyName }},
	{"jobArea", func(r *model.JobRecord) string { return r.JobArea }},
	{"salary", func(r *model.JobRecord) string { return r.Salary }},
	{"jobTerm", func(r *model.JobRecord) string { return r.JobTerm }},
	{"workYear", func(r *model.JobRecord) string { return r.WorkYear }},
	{"degree", func(r *model.JobRecord) string { return r.Degree }},
	{"coType", func(r *model.JobRecord) string { return r.CoType }},
	{"coSize", func(r *model.JobRecord) string { return r.CoSize }},
	{"industry", func(r *model.JobRecord) string { return r.Industry }},
	{"issueDate", func(r *model.JobRecord) string { return r.IssueDate }},
	{"lastUpdate", func(r *model.JobRecord) string { return r.LastUpdate }},
	{"jobDetailUrl", func(r *model.JobRecord) string { return r.JobDetailURL }},
	{"jobTags", func(r *model.JobRecord) string { return strings.Join(r.JobTags, "|") }},
	{"sesameLabels", func(r *model.JobRecord) string { return strings.Join(r.SesameLabels, "|") }},
	{"funcType1Str", func(r *model.JobRecord) string { return r.FuncType1Str }},
	{"hrName", func(r *model.JobRecord) string { return r.HrName }},
	{"hrPosition", func(r *model.JobRecord) string { return r.HrPosition }},
	{"hrActiveStatus", func(r *model.JobRecord) string { return r.HrActiveStatus }},
	{"jobareaCode", func(r *model.JobRecord) string { return r.JobAreaCode }},
}

// Header 导出的列名
func Header() []string {
	header := make([]string, 0, len(columns))
	for _, c := range columns {
		header = append(header, c.name)
	}
	return header
}

// DefaultCSVPath 与输入同名, 扩展名换成 .csv
func DefaultCSVPath(src string) string {
	return strings.TrimSuffix(src, filepath.Ext(src)) + ".csv"
}

// Stats 导出统计
type Stats struct {
	Rows    int
	Skipped int
}

// JobsToCSV 把职位 JSONL 转为带 BOM 的 CSV. 无法解析的行 (例如中断时写了一半) 跳过并记录
func JobsToCSV(ctx context.Context, src, dst string, log logger.Logger) (Stats, error) {
	var stats Stats
	in, err := os.Open(src)
	if err != nil {
		return stats, fmt.Errorf("open jsonl: %w", err)
	}
	defer in.Close()

	if dir := filepath.Dir(dst); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return stats, fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	out, err := os.Create(dst)
	if err != nil {
		return stats, fmt.Errorf("create csv file: %w", err)
	}
	defer out.Close()

	buf := bufio.NewWriter(out)
	if _, err := buf.WriteString(utf8BOM); err != nil {
		return stats, fmt.Errorf("write bom: %w", err)
	}
	w := csv.NewWriter(buf)
	if err := w.Write(Header()); err != nil {
		return stats, fmt.Errorf("write csv header: %w", err)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNo := 0
	row := make([]string, len(columns))
	for scanner.Scan() {
		lineNo++
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec model.JobRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			stats.Skipped++
			log.Warn("跳过无法解析的行", logger.String("file", src), logger.Int("line", lineNo), logger.Error(err))
			continue
		}
		for i, c := range columns {
			row[i] = c.value(&rec)
		}
		if err := w.Write(row); err != nil {
			return stats, fmt.Errorf("write csv record: %w", err)
		}
		stats.Rows++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read jsonl: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return stats, fmt.Errorf("flush csv records: %w", err)
	}
	if err := buf.Flush(); err != nil {
		return stats, fmt.Errorf("flush csv file: %w", err)
	}
	if err := out.Close(); err != nil {
		return stats, fmt.Errorf("close csv file: %w", err)
	}
	log.Info("导出完成", logger.String("src", src), logger.String("dst", dst), logger.Int("rows", stats.Rows), logger.Int("skipped", stats.Skipped))
	return stats, nil
}
