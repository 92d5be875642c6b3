package model

import (
	"encoding/json"
	"strings"
)

// JobRecord 一条规范化后的职位记录, 每个 jobId 在一次爬取会话中至多输出一次
type JobRecord struct {
	CapturedAt    string `json:"capturedAt"`
	Keyword       string `json:"keyword"`
	Pageno        string `json:"pageno"`
	PageRequestID string `json:"pageRequestId"`
	SourceURL     string `json:"sourceUrl"`

	JobID     string `json:"jobId"`
	CompanyID string `json:"companyId"`

	JobTitle       string   `json:"jobTitle"`
	CompanyName    string   `json:"companyName"`
	JobArea        string   `json:"jobArea"`
	Salary         string   `json:"salary"`
	JobTerm        string   `json:"jobTerm"`
	JobTermCode    string   `json:"jobTermCode"`
	WorkYear       string   `json:"workYear"`
	Degree         string   `json:"degree"`
	CoType         string   `json:"coType"`
	CoSize         string   `json:"coSize"`
	Industry       string   `json:"industry"`
	IssueDate      string   `json:"issueDate"`
	LastUpdate     string   `json:"lastUpdate"`
	JobDetailURL   string   `json:"jobDetailUrl"`
	JobTags        []string `json:"jobTags"`
	SesameLabels   []string `json:"sesameLabels"`
	Lat            string   `json:"lat"`
	Lon            string   `json:"lon"`
	FuncType1      string   `json:"funcType1"`
	FuncType1Str   string   `json:"funcType1Str"`
	IsAd           string   `json:"isAd"`
	HrName         string   `json:"hrName"`
	HrPosition     string   `json:"hrPosition"`
	HrActiveStatus string   `json:"hrActiveStatus"`

	// Property 原始嵌套属性, 原样保留
	Property json.RawMessage `json:"property"`

	JobAreaCode string `json:"jobareaCode"`
}

func (r *JobRecord) GetID() string {
	return r.JobID
}

// GetEmbeddingString 用于生成向量的文本
func (r *JobRecord) GetEmbeddingString() string {
	parts := []string{r.JobTitle, r.CompanyName, r.JobArea, r.Salary, r.Degree, r.Industry}
	parts = append(parts, r.JobTags...)
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// PageRecord 每个 pageno 在一次爬取会话中至多一条
type PageRecord struct {
	CapturedAt    string `json:"capturedAt"`
	Keyword       string `json:"keyword"`
	JobArea       string `json:"jobarea"`
	Pageno        string `json:"pageno"`
	PageRequestID string `json:"pageRequestId"`
	ItemCount     int    `json:"itemCount"`
	// TotalCount 站点给出的总数, 尽力而为, 可能为空
	TotalCount string `json:"totalCount"`
	URL        string `json:"url"`
}
