package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jobsJSONL = `{"capturedAt":"2026-03-01T09:05:07","keyword":"人力资源","pageno":"1","pageRequestId":"r","sourceUrl":"u","jobId":"1001","companyId":"c1","jobTitle":"HR, Assistant","companyName":"Acme","jobArea":"济南","salary":"6-8千","jobTags":["五险一金","双休"],"sesameLabels":["急招"],"lat":"36.6","lon":"117","isAd":"0","property":{"jobId":"1001"},"jobareaCode":"250000"}

{"keyword":"人力资源","jobId":"1002","jobTitle":"招聘专员","jobTags":[],"sesameLabels":null}
{"keyword":"人力资源","jobId":"10`

func TestJobsToCSV(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "yingjiesheng_jobs_人力资源_山东.jsonl")
	require.NoError(t, os.WriteFile(src, []byte(jobsJSONL), 0o644))
	dst := DefaultCSVPath(src)
	assert.Equal(t, filepath.Join(dir, "yingjiesheng_jobs_人力资源_山东.csv"), dst)

	stats, err := JobsToCSV(context.Background(), src, dst, logger.NewNop())
	require.NoError(t, err)
	assert.Equal(t, Stats{Rows: 2, Skipped: 1}, stats)

	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(raw), utf8BOM))

	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(raw), utf8BOM))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	assert.Equal(t, Header(), header)
	for _, dropped := range []string{"pageno", "pageRequestId", "sourceUrl", "jobId", "companyId", "capturedAt", "lat", "lon", "isAd", "property"} {
		assert.NotContains(t, header, dropped)
	}

	first := map[string]string{}
	for i, name := range header {
		first[name] = rows[1][i]
	}
	assert.Equal(t, "HR, Assistant", first["jobTitle"])
	assert.Equal(t, "五险一金|双休", first["jobTags"])
	assert.Equal(t, "急招", first["sesameLabels"])
	assert.Equal(t, "250000", first["jobareaCode"])
	assert.Equal(t, "招聘专员", rows[2][1])
}

func TestJobsToCSVMissingInput(t *testing.T) {
	_, err := JobsToCSV(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"), filepath.Join(t.TempDir(), "out.csv"), logger.NewNop())
	assert.Error(t, err)
}
