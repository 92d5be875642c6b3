package areacode

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrAmbiguous = errors.New("area name is ambiguous")
	ErrNotFound  = errors.New("area name not found")
)

const maxSuggestions = 50

// 已带行政区后缀的名称不再补 "省"
var adminSuffixes = []string{"省", "市", "自治区", "特别行政区"}

// AmbiguousError 同名对应多个编码
type AmbiguousError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("area %q maps to multiple codes: %s", e.Name, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousError) Unwrap() error { return ErrAmbiguous }

// NotFoundError 未找到, 附带包含该名称的候选
type NotFoundError struct {
	Name        string
	Suggestions []Entry
}

func (e *NotFoundError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("area %q not found", e.Name)
	}
	hints := make([]string, 0, len(e.Suggestions))
	for _, s := range e.Suggestions {
		hints = append(hints, s.Name+"("+s.Code+")")
	}
	return fmt.Sprintf("area %q not found, similar: %s", e.Name, strings.Join(hints, ", "))
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Resolver 地区名称解析
type Resolver struct {
	dict    *Dictionary
	aliases map[string]bool
}

func NewResolver(dict *Dictionary, nationwideAliases []string) *Resolver {
	aliases := make(map[string]bool, len(nationwideAliases))
	for _, a := range nationwideAliases {
		aliases[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return &Resolver{dict: dict, aliases: aliases}
}

// IsNationwide 空名称或全国别名
func (r *Resolver) IsNationwide(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return n == "" || r.aliases[n]
}

// Resolve 返回编码; 全国返回空串
func (r *Resolver) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if r.IsNationwide(name) {
		return "", nil
	}
	if code, ok, err := r.exact(name); ok || err != nil {
		return code, err
	}
	if !hasAdminSuffix(name) {
		if code, ok, err := r.exact(name + "省"); ok || err != nil {
			return code, err
		}
	}
	return "", &NotFoundError{Name: name, Suggestions: r.similar(name)}
}

func (r *Resolver) exact(name string) (string, bool, error) {
	codes := r.dict.Codes(name)
	switch len(codes) {
	case 0:
		return "", false, nil
	case 1:
		return codes[0], true, nil
	default:
		return "", false, &AmbiguousError{Name: name, Candidates: append([]string(nil), codes...)}
	}
}

func (r *Resolver) similar(name string) []Entry {
	var hits []Entry
	for _, e := range r.dict.all {
		if strings.Contains(e.Name, name) {
			hits = append(hits, e)
			if len(hits) == maxSuggestions {
				break
			}
		}
	}
	return hits
}

func hasAdminSuffix(name string) bool {
	for _, s := range adminSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}
