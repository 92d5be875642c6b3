package areacode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/crawler/collector"
)

// Entry 字典中的一对 名称 -> 编码
type Entry struct {
	Name string
	Code string
}

// Dictionary 地区名称到编码的映射, 同名可能对应多个编码
type Dictionary struct {
	names map[string][]string
	all   []Entry
}

// Download 通过 colly 下载城市字典到 path
func Download(url, path string, transport http.RoundTripper) error {
	c := collector.InitCollyCrawler(collector.Options{
		Timeout:   30 * time.Second,
		Transport: transport,
	})
	body, err := collector.Fetch(c, url)
	if err != nil {
		return fmt.Errorf("下载城市字典失败 %s: %w", url, err)
	}
	if !json.Valid(body) {
		return fmt.Errorf("城市字典不是合法 JSON: %s", url)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dict dir: %w", err)
		}
	}
	return os.WriteFile(path, body, 0o644)
}

// Load 读取本地字典, 不存在时先下载
func Load(path, url string, transport http.RoundTripper) (*Dictionary, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Download(url, path, transport); err != nil {
			return nil, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read city dict %s: %w", path, err)
	}
	return Parse(data)
}

// Parse 递归收集所有同时含 code 与 value 的对象
func Parse(data []byte) (*Dictionary, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode city dict: %w", err)
	}

	d := &Dictionary{names: map[string][]string{}}
	seen := map[Entry]bool{}
	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case map[string]any:
			code, hasCode := node["code"]
			value, hasValue := node["value"]
			if hasCode && hasValue && code != nil && value != nil {
				e := Entry{Name: fmt.Sprint(value), Code: fmt.Sprint(code)}
				if !seen[e] {
					seen[e] = true
					d.all = append(d.all, e)
					d.names[e.Name] = append(d.names[e.Name], e.Code)
				}
			}
			for _, child := range node {
				walk(child)
			}
		case []any:
			for _, child := range node {
				walk(child)
			}
		}
	}
	walk(root)

	sort.Slice(d.all, func(i, j int) bool {
		if d.all[i].Name != d.all[j].Name {
			return d.all[i].Name < d.all[j].Name
		}
		return d.all[i].Code < d.all[j].Code
	})
	for name, codes := range d.names {
		sort.Strings(codes)
		d.names[name] = codes
	}
	return d, nil
}

// Codes 名称对应的去重排序编码
func (d *Dictionary) Codes(name string) []string {
	return d.names[name]
}

func (d *Dictionary) Len() int {
	return len(d.all)
}
