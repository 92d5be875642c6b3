package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/areacode"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/service/crawler"
	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/param"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cityDict = `{
  "provinces": [
    {"code": "250000", "value": "山东", "sub": [
      {"code": "250200", "value": "济南"},
      {"code": "250300", "value": "青岛"}
    ]},
    {"code": "030000", "value": "广东省"},
    {"code": "140000", "value": "吉林", "sub": [{"code": "240200", "value": "吉林"}]}
  ]
}`

func writeDict(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dd_city.json")
	require.NoError(t, os.WriteFile(path, []byte(cityDict), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(appConfig)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestInitAppliesOnlyChangedFlags(t *testing.T) {
	a := &app{defaults: appConfig}
	cmd := &cobra.Command{Use: "t"}
	a.bindFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{"--keyword", "会计", "--max-page-actions", "5", "--headless", "--debug"}))

	require.NoError(t, a.init(cmd))
	assert.Equal(t, "会计", a.cfg.Crawl.Keyword)
	assert.Equal(t, 5, a.cfg.Crawl.MaxPageActions)
	assert.True(t, a.cfg.Rod.Headless)
	assert.Equal(t, "debug", a.cfg.Log.Level)

	assert.Equal(t, "山东", a.cfg.Crawl.AreaName)
	assert.Equal(t, 8, a.cfg.Crawl.MinDelaySeconds)
	assert.Equal(t, 6, a.cfg.Crawl.NoProgressLimit)
}

func TestInitRejectsInvertedDelays(t *testing.T) {
	a := &app{defaults: appConfig}
	cmd := &cobra.Command{Use: "t"}
	a.bindFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{"--min-delay-s", "20", "--max-delay-s", "10"}))

	assert.Error(t, a.init(cmd))
}

func TestAreaCommand(t *testing.T) {
	dict := writeDict(t)

	out, _, err := execute(t, "area", "青岛", "--city-dict-path", dict)
	require.NoError(t, err)
	assert.Equal(t, "青岛 -> 250300\n", out)

	out, _, err = execute(t, "area", "广东", "--city-dict-path", dict)
	require.NoError(t, err)
	assert.Equal(t, "广东 -> 030000\n", out)

	out, _, err = execute(t, "area", "全国", "--city-dict-path", dict)
	require.NoError(t, err)
	assert.Contains(t, out, "全国")
}

func TestAreaCommandListsCandidates(t *testing.T) {
	dict := writeDict(t)

	_, errOut, err := execute(t, "area", "吉林", "--city-dict-path", dict)
	require.ErrorIs(t, err, areacode.ErrAmbiguous)
	assert.Contains(t, errOut, "140000")
	assert.Contains(t, errOut, "240200")

	_, errOut, err = execute(t, "area", "济", "--city-dict-path", dict)
	require.ErrorIs(t, err, areacode.ErrNotFound)
	assert.Contains(t, errOut, "济南")
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "jobs.jsonl")
	line := `{"keyword":"人力资源","jobId":"1","jobTitle":"招聘专员","jobTags":["双休"]}` + "\n"
	require.NoError(t, os.WriteFile(src, []byte(line), 0o644))
	dst := filepath.Join(dir, "out.csv")

	out, _, err := execute(t, "export", src, "--out", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "1 rows")

	raw, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "招聘专员")
}

func TestOutputFiles(t *testing.T) {
	a := &app{defaults: appConfig}
	cmd := &cobra.Command{Use: "t"}
	a.bindFlags(cmd.Flags())
	require.NoError(t, cmd.ParseFlags(nil))
	require.NoError(t, a.init(cmd))
	cfg := a.cfg
	cfg.Output.Dir = "out"

	files := outputFiles(cfg, false)
	assert.Equal(t, filepath.Join("out", "yingjiesheng_jobs_人力资源_山东.jsonl"), files.Jobs)
	assert.Equal(t, filepath.Join("out", "yingjiesheng_pages_人力资源_山东.jsonl"), files.Pages)

	files = outputFiles(cfg, true)
	assert.Equal(t, filepath.Join("out", "yingjiesheng_jobs_人力资源_全国.jsonl"), files.Jobs)

	cfg.Output.JobsJSONL = "custom.jsonl"
	assert.Equal(t, "custom.jsonl", outputFiles(cfg, false).Jobs)

	assert.Equal(t, filepath.Join("out", "bad_responses.log"), badResponsesPath(cfg))
	cfg.Output.BadResponsesLog = "/var/log/bad.log"
	assert.Equal(t, "/var/log/bad.log", badResponsesPath(cfg))
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	renderSummary(&buf, nil, param.OutputFiles{})
	assert.Empty(t, buf.String())

	res := &crawler.Result{AttemptID: "a-1", State: crawler.StateCompleted, MaxPage: 3, Pages: 3, Jobs: 42, Actions: 2}
	renderSummary(&buf, res, param.OutputFiles{Jobs: "jobs.jsonl", Pages: "pages.jsonl"})
	out := buf.String()
	for _, want := range []string{"a-1", "completed", "42", "jobs.jsonl", "pages.jsonl"} {
		assert.True(t, strings.Contains(out, want), want)
	}
}
