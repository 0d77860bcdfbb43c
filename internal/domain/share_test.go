package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"empty", "", []string{}},
		{"prose only", "看看这个 真好笑", []string{}},
		{"no host label", "visit http://localhost/now", []string{}},
		{"share text", "看看这个 https://v.douyin.com/abc123/ 真好笑", []string{"https://v.douyin.com/abc123/"}},
		{
			"several links in order",
			"first http://a.example.com/x then https://b.example.org/y?z=1 and https://v.douyin.com/q/",
			[]string{"http://a.example.com/x", "https://b.example.org/y?z=1", "https://v.douyin.com/q/"},
		},
		{"trailing punctuation dropped", "link: https://v.douyin.com/abc123, ok", []string{"https://v.douyin.com/abc123"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractURLs(tt.text))
		})
	}
}

func TestLastURL(t *testing.T) {
	u, ok := LastURL("7.43 复制打开抖音 https://www.douyin.com/ https://v.douyin.com/iRNBho6u/ 看看")
	assert.True(t, ok)
	assert.Equal(t, "https://v.douyin.com/iRNBho6u/", u)

	_, ok = LastURL("nothing here")
	assert.False(t, ok)
}

func TestDirectLink(t *testing.T) {
	assert.Equal(t,
		"https://www.douyin.com/aweme/v1/play/?video_id=999",
		DirectLink(DefaultPlayEndpoint, "999"))
	assert.Equal(t,
		"https://example.com/play/?video_id=v0200f%26x",
		DirectLink("https://example.com/play/", "v0200f&x"))
}

func TestSuggestFileName(t *testing.T) {
	tests := []struct {
		text     string
		expected string
	}{
		{"https://v.douyin.com/abc/", "抖音下载"},
		{"3.07 #周末去哪儿# https://v.douyin.com/abc/", "周末去哪儿"},
		{"#only-one-hash https://v.douyin.com/abc/", "only-one-hash httpsv.douyin.comabc"},
		{"## https://v.douyin.com/abc/", "抖音下载"},
		{"#a/b\\c# x", "abc"},
		{"#..# x", "抖音下载"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.expected, SuggestFileName(tt.text, "抖音下载"))
		})
	}
}
