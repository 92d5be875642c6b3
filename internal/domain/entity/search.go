package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/domain/model"
)

// Text 宽松的字符串字段: 接受 JSON 字符串、数字、布尔, null 视为空串
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		*t = Text(data)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}

// Texts 宽松的字符串列表: 数组按 Text 逐个解析, 单个标量视为一个元素, null 为空
type Texts []Text

func (ts *Texts) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*ts = nil
	case data[0] == '[':
		var list []Text
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*ts = list
	case data[0] == '{':
		return fmt.Errorf("cannot decode object into text list: %.40s", data)
	default:
		var t Text
		if err := t.UnmarshalJSON(data); err != nil {
			return err
		}
		*ts = nil
		if t != "" {
			*ts = Texts{t}
		}
	}
	return nil
}

// SearchResponse 搜索接口 youngapi.yingjiesheng.com/open/noauth/job/search 的响应外层.
// resultbody 延后解析, 失败响应里它可能是字符串或 null
type SearchResponse struct {
	Status     Text            `json:"status"`
	Message    Text            `json:"message"`
	ResultBody json.RawMessage `json:"resultbody"`
}

// OK 站点以 status == "1" 表示成功
func (r *SearchResponse) OK() bool {
	return r.Status == "1"
}

// SearchPage 成功响应中的分页数据
type SearchPage struct {
	RequestID  string
	TotalCount string
	Items      []RawJobItem
	// Skipped 无法解码的条目
	Skipped []ItemError
}

// Len 接口返回的条目数, 含无法解码的条目
func (p *SearchPage) Len() int {
	return len(p.Items) + len(p.Skipped)
}

// ItemError 第 Index 个条目解码失败
type ItemError struct {
	Index int
	Err   error
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

// Page 逐层解析 resultbody.searchData.joblist; 某层类型不符时按空处理,
// 单个条目解码失败只跳过该条目
func (r *SearchResponse) Page() *SearchPage {
	var body struct {
		RequestID  Text            `json:"requestId"`
		SearchData json.RawMessage `json:"searchData"`
	}
	var data struct {
		JobList json.RawMessage `json:"joblist"`
	}
	var list struct {
		Items      json.RawMessage `json:"items"`
		TotalCount Text            `json:"totalCount"`
	}
	var raws []json.RawMessage
	decodeLoose(r.ResultBody, &body)
	decodeLoose(body.SearchData, &data)
	decodeLoose(data.JobList, &list)
	decodeLoose(list.Items, &raws)

	page := &SearchPage{
		RequestID:  body.RequestID.String(),
		TotalCount: list.TotalCount.String(),
	}
	for i, raw := range raws {
		var item RawJobItem
		if err := json.Unmarshal(raw, &item); err != nil {
			page.Skipped = append(page.Skipped, ItemError{Index: i, Err: err})
			continue
		}
		page.Items = append(page.Items, item)
	}
	return page
}

// decodeLoose 类型不符时保留零值
func decodeLoose(raw json.RawMessage, v any) {
	if len(raw) == 0 {
		return
	}
	_ = json.Unmarshal(raw, v)
}

// RawJobItem 接口返回的单条职位, 同一字段在不同版本的接口中名字不同
type RawJobItem struct {
	JobIDLower     Text            `json:"jobid"`
	JobID          Text            `json:"jobId"`
	CoID           Text            `json:"coid"`
	CompanyID      Text            `json:"companyId"`
	JobName        Text            `json:"jobname"`
	JobTitle       Text            `json:"jobTitle"`
	CoName         Text            `json:"coname"`
	CompanyName    Text            `json:"companyName"`
	JobArea        Text            `json:"jobarea"`
	ProvideSalary  Text            `json:"providesalary"`
	MonthSalary    Text            `json:"monthSalary"`
	JobTerm        Text            `json:"jobterm"`
	JobTermCode    Text            `json:"jobtermCode"`
	WorkYear       Text            `json:"workyear"`
	Degree         Text            `json:"degree"`
	CoType         Text            `json:"cotype"`
	CoSize         Text            `json:"cosize"`
	IndType        Text            `json:"indtype"`
	IssueDate      Text            `json:"issuedate"`
	LastUpdate     Text            `json:"lastupdate"`
	JumpURLHTTP    Text            `json:"jumpUrlHttp"`
	JobTags        Texts           `json:"jobTags"`
	SesameLabels   json.RawMessage `json:"sesameLabelList"`
	Lat            Text            `json:"lat"`
	Lon            Text            `json:"lon"`
	FuncType1      Text            `json:"funcType1"`
	FuncType1Str   Text            `json:"funcType1Str"`
	IsAdLower      Text            `json:"isad"`
	IsAd           Text            `json:"isAd"`
	HrName         Text            `json:"hrName"`
	HrPosition     Text            `json:"hrPosition"`
	HrActiveStatus Text            `json:"hrActiveStatus"`
	// Property 是一个 JSON 字符串
	Property Text `json:"property"`
}

// Provenance 记录来源信息
type Provenance struct {
	CapturedAt    string
	Keyword       string
	Pageno        string
	PageRequestID string
	SourceURL     string
	JobAreaCode   string
}

// DedupKey 用于去重的 jobId, 依次取 jobid / jobId / property.jobId
func (item *RawJobItem) DedupKey() string {
	return item.normalizedJobID(item.property())
}

func (item *RawJobItem) normalizedJobID(prop map[string]any) string {
	return strings.TrimSpace(first(item.JobIDLower.String(), item.JobID.String(), propString(prop, "jobId")))
}

// ToRecord 将原始条目规范化为 JobRecord
func (item *RawJobItem) ToRecord(p Provenance) *model.JobRecord {
	prop := item.property()

	tags := make([]string, 0, len(item.JobTags))
	for _, t := range item.JobTags {
		tags = append(tags, t.String())
	}

	var rawLabels []json.RawMessage
	decodeLoose(item.SesameLabels, &rawLabels)
	labels := make([]string, 0, len(rawLabels))
	for _, raw := range rawLabels {
		var label struct {
			LabelName Text `json:"labelName"`
		}
		if err := json.Unmarshal(raw, &label); err != nil || label.LabelName == "" {
			continue
		}
		labels = append(labels, label.LabelName.String())
	}

	propertyRaw := json.RawMessage("{}")
	if prop != nil {
		propertyRaw = json.RawMessage(item.Property)
	}

	return &model.JobRecord{
		CapturedAt:    p.CapturedAt,
		Keyword:       p.Keyword,
		Pageno:        p.Pageno,
		PageRequestID: p.PageRequestID,
		SourceURL:     p.SourceURL,

		JobID:     item.normalizedJobID(prop),
		CompanyID: first(item.CoID.String(), item.CompanyID.String(), propString(prop, "companyId")),

		JobTitle:       first(item.JobName.String(), item.JobTitle.String(), propString(prop, "jobTitle")),
		CompanyName:    first(item.CoName.String(), item.CompanyName.String(), propString(prop, "companyName")),
		JobArea:        item.JobArea.String(),
		Salary:         first(item.ProvideSalary.String(), item.MonthSalary.String(), propString(prop, "monthSalary")),
		JobTerm:        item.JobTerm.String(),
		JobTermCode:    item.JobTermCode.String(),
		WorkYear:       item.WorkYear.String(),
		Degree:         item.Degree.String(),
		CoType:         item.CoType.String(),
		CoSize:         item.CoSize.String(),
		Industry:       item.IndType.String(),
		IssueDate:      item.IssueDate.String(),
		LastUpdate:     item.LastUpdate.String(),
		JobDetailURL:   item.JumpURLHTTP.String(),
		JobTags:        tags,
		SesameLabels:   labels,
		Lat:            item.Lat.String(),
		Lon:            item.Lon.String(),
		FuncType1:      item.FuncType1.String(),
		FuncType1Str:   item.FuncType1Str.String(),
		IsAd:           first(item.IsAdLower.String(), item.IsAd.String()),
		HrName:         item.HrName.String(),
		HrPosition:     item.HrPosition.String(),
		HrActiveStatus: item.HrActiveStatus.String(),
		Property:       propertyRaw,
		JobAreaCode:    p.JobAreaCode,
	}
}

// property 解析 property 字段, 非 JSON 对象时返回 nil
func (item *RawJobItem) property() map[string]any {
	raw := strings.TrimSpace(item.Property.String())
	if raw == "" {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var prop map[string]any
	if err := dec.Decode(&prop); err != nil {
		return nil
	}
	return prop
}

func propString(prop map[string]any, key string) string {
	v, ok := prop[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
