package api

import (
	"net/http"
	"net/url"

	"github.com/tomnomnom/linkheader"
)

// NextMaxID 从 Link 响应头中取 rel="next" 链接的 max_id 参数，没有时返回空串
func NextMaxID(header http.Header) string {
	return linkParam(header, "next", "max_id")
}

// PrevMinID 从 Link 响应头中取 rel="prev" 链接的 min_id 参数
func PrevMinID(header http.Header) string {
	return linkParam(header, "prev", "min_id")
}

func linkParam(header http.Header, rel, param string) string {
	values := header.Values("Link")
	if len(values) == 0 {
		return ""
	}

	for _, link := range linkheader.ParseMultiple(values).FilterByRel(rel) {
		// 相对链接同样可解析出查询参数
		u, err := url.Parse(link.URL)
		if err != nil {
			continue
		}
		if v := u.Query().Get(param); v != "" {
			return v
		}
	}
	return ""
}
