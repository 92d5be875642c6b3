package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "status": 1,
  "message": "ok",
  "resultbody": {
    "requestId": "req-1",
    "searchData": {
      "joblist": {
        "totalCount": 345,
        "items": [
          {
            "jobid": " 1001 ",
            "coid": "c1",
            "jobname": "HR Assistant",
            "coname": "Acme",
            "jobarea": "济南",
            "providesalary": "6-8千",
            "jobTags": ["五险一金", "双休", "五险一金"],
            "sesameLabelList": [{"labelName": "急招"}, "junk", {"labelName": ""}],
            "isad": "0",
            "property": "{\"jobId\": 999, \"monthSalary\": \"x\"}"
          },
          {
            "property": "{\"jobId\": 123456789, \"companyId\": \"c2\", \"jobTitle\": \"Recruiter\", \"companyName\": \"Beta\", \"monthSalary\": \"1万\"}"
          },
          {
            "jobId": "",
            "property": "not json"
          }
        ]
      }
    }
  }
}`

func TestSearchResponseDecodesLooseTypes(t *testing.T) {
	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(samplePayload), &resp))

	assert.True(t, resp.OK())
	page := resp.Page()
	assert.Equal(t, "req-1", page.RequestID)
	assert.Equal(t, "345", page.TotalCount)
	assert.Len(t, page.Items, 3)
	assert.Empty(t, page.Skipped)
	assert.Equal(t, 3, page.Len())
}

func TestFailureEnvelopeWithStringResultBody(t *testing.T) {
	for _, body := range []string{
		`{"status":"0","message":"busy","resultbody":""}`,
		`{"status":"0","message":"busy","resultbody":null}`,
		`{"status":"0","message":"busy","resultbody":{"searchData":"x"}}`,
	} {
		var resp SearchResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp), body)
		assert.False(t, resp.OK())
		assert.Equal(t, Text("busy"), resp.Message)

		page := resp.Page()
		assert.Empty(t, page.Items, body)
		assert.Zero(t, page.Len(), body)
	}
}

func TestPageSkipsOnlyUndecodableItems(t *testing.T) {
	body := `{"status":"1","resultbody":{"requestId":"r","searchData":{"joblist":{"totalCount":"3","items":[
		{"jobid":"1","jobTags":"x"},
		{"jobid":"2","jobTags":{"bad":true}},
		{"jobid":"3","jobTags":null,"sesameLabelList":"none"}
	]}}}}`
	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	page := resp.Page()
	require.Len(t, page.Items, 2)
	require.Len(t, page.Skipped, 1)
	assert.Equal(t, 1, page.Skipped[0].Index)
	assert.Equal(t, 3, page.Len())

	first := page.Items[0].ToRecord(Provenance{})
	assert.Equal(t, "1", first.JobID)
	assert.Equal(t, []string{"x"}, first.JobTags)

	third := page.Items[1].ToRecord(Provenance{})
	assert.Equal(t, "3", third.JobID)
	assert.Empty(t, third.JobTags)
	assert.Empty(t, third.SesameLabels)
}

func TestStatusOtherThanOneIsNotOK(t *testing.T) {
	for _, body := range []string{`{"status":"0"}`, `{"status":null}`, `{}`} {
		var resp SearchResponse
		require.NoError(t, json.Unmarshal([]byte(body), &resp))
		assert.False(t, resp.OK(), body)
	}
}

func TestToRecordNormalizesFieldFallbacks(t *testing.T) {
	var resp SearchResponse
	require.NoError(t, json.Unmarshal([]byte(samplePayload), &resp))
	items := resp.Page().Items
	p := Provenance{Keyword: "人力资源", Pageno: "2", PageRequestID: "req-1", JobAreaCode: "250000"}

	direct := items[0].ToRecord(p)
	assert.Equal(t, "1001", direct.JobID)
	assert.Equal(t, "c1", direct.CompanyID)
	assert.Equal(t, "HR Assistant", direct.JobTitle)
	assert.Equal(t, "6-8千", direct.Salary)
	assert.Equal(t, []string{"五险一金", "双休", "五险一金"}, direct.JobTags)
	assert.Equal(t, []string{"急招"}, direct.SesameLabels)
	assert.Equal(t, "0", direct.IsAd)
	assert.Equal(t, "250000", direct.JobAreaCode)
	assert.JSONEq(t, `{"jobId": 999, "monthSalary": "x"}`, string(direct.Property))

	fromProperty := items[1].ToRecord(p)
	assert.Equal(t, "123456789", fromProperty.JobID)
	assert.Equal(t, "c2", fromProperty.CompanyID)
	assert.Equal(t, "Recruiter", fromProperty.JobTitle)
	assert.Equal(t, "Beta", fromProperty.CompanyName)
	assert.Equal(t, "1万", fromProperty.Salary)

	empty := items[2].ToRecord(p)
	assert.Empty(t, empty.JobID)
	assert.Empty(t, items[2].DedupKey())
	assert.JSONEq(t, `{}`, string(empty.Property))
}
