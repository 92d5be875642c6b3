package types

// NetworkResponse 监听器捕获到的一次匹配响应
type NetworkResponse struct {
	Url         string
	UrlPattern  string
	Status      int
	ContentType string
	Body        []byte
}
