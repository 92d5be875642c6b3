package collector

import (
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assetURL = "https://js.51jobcdn.com/in/js/2023/dd/dd_city.json"

func TestFetchSendsHeadersAndReturnsBody(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", assetURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "https://q.yingjiesheng.com/", req.Header.Get("Referer"))
		assert.Equal(t, "yjs-test", req.Header.Get("User-Agent"))
		return httpmock.NewStringResponse(200, `{"ok":true}`), nil
	})

	c := InitCollyCrawler(Options{
		UserAgent: "yjs-test",
		Timeout:   time.Second,
		Headers:   map[string]string{"Referer": "https://q.yingjiesheng.com/"},
		Transport: transport,
	})
	body, err := Fetch(c, assetURL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestFetchReportsHTTPErrors(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", assetURL, httpmock.NewStringResponder(404, "missing"))

	_, err := Fetch(InitCollyCrawler(Options{Transport: transport}), assetURL)
	assert.Error(t, err)
}
