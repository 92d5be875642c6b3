package chrome

import (
	"encoding/json"
	"fmt"

	"github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/infra/session"
	"github.com/go-rod/rod/lib/proto"
)

const localStorageDumpJS = `() => {
	const items = [];
	try {
		for (let i = 0; i < localStorage.length; i++) {
			const k = localStorage.key(i);
			items.push({name: k, value: localStorage.getItem(k)});
		}
	} catch (e) {}
	return {origin: location.origin, localStorage: items};
}`

// localStorageRestoreJS 只在同源文档中写入
func localStorageRestoreJS(origin session.OriginState) (string, error) {
	originJSON, err := json.Marshal(origin.Origin)
	if err != nil {
		return "", fmt.Errorf("encode origin: %w", err)
	}
	itemsJSON, err := json.Marshal(origin.LocalStorage)
	if err != nil {
		return "", fmt.Errorf("encode localStorage: %w", err)
	}
	return fmt.Sprintf(`(() => {
	if (location.origin !== %s) return;
	try {
		for (const it of %s) localStorage.setItem(it.name, it.value);
	} catch (e) {}
})()`, originJSON, itemsJSON), nil
}

func toRodCookies(cookies []session.Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		p := &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: proto.NetworkCookieSameSite(c.SameSite),
		}
		// 会话 cookie 在 Playwright 中记为 -1
		if c.Expires > 0 {
			p.Expires = proto.TimeSinceEpoch(c.Expires)
		}
		params = append(params, p)
	}
	return params
}

func fromRodCookies(cookies []*proto.NetworkCookie) []session.Cookie {
	out := make([]session.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, session.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  float64(c.Expires),
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: string(c.SameSite),
		})
	}
	return out
}
