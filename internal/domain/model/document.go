package model

import (
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// JobDoc 写入 Elasticsearch 的文档, 在 JobRecord 基础上附加向量
type JobDoc struct {
	*JobRecord
	Embedding []float32 `json:"embedding,omitempty"`
}

func (d *JobDoc) SetEmbedding(embedding []float32) {
	d.Embedding = embedding
}

// JobTypeMapping 职位索引的映射, dims 为 0 时不建向量字段
func JobTypeMapping(dims int) *types.TypeMapping {
	keyword := func() types.Property { return types.NewKeywordProperty() }
	text := func() types.Property { return types.NewTextProperty() }

	props := map[string]types.Property{
		"capturedAt":     keyword(),
		"keyword":        keyword(),
		"pageno":         keyword(),
		"pageRequestId":  keyword(),
		"sourceUrl":      keyword(),
		"jobId":          keyword(),
		"companyId":      keyword(),
		"jobTitle":       text(),
		"companyName":    text(),
		"jobArea":        keyword(),
		"salary":         keyword(),
		"jobTerm":        keyword(),
		"workYear":       keyword(),
		"degree":         keyword(),
		"coType":         keyword(),
		"coSize":         keyword(),
		"industry":       keyword(),
		"issueDate":      keyword(),
		"lastUpdate":     keyword(),
		"jobDetailUrl":   keyword(),
		"jobTags":        keyword(),
		"sesameLabels":   keyword(),
		"hrName":         keyword(),
		"hrActiveStatus": keyword(),
		"jobareaCode":    keyword(),
	}
	enabled := false
	props["property"] = &types.ObjectProperty{Enabled: &enabled}

	if dims > 0 {
		vector := types.NewDenseVectorProperty()
		vector.Dims = &dims
		props["embedding"] = vector
	}
	return &types.TypeMapping{Properties: props}
}
