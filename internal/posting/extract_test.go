package posting

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractGakujoProfile(t *testing.T) {
	page, err := os.ReadFile("testdata/gakujo.html")
	require.NoError(t, err)

	record, err := Extract(string(page), "https://www.gakujo.ne.jp/campus/company/employ/82098/")
	require.NoError(t, err)

	assert.Equal(t, "株式会社サンプル テストエンジニア", record.Title)
	assert.Equal(t, "月給20万円", record.Salary)
	assert.Equal(t, "東京都千代田区", record.Location)
	assert.Equal(t, "2025年3月卒業見込みの方", record.Qualifications)

	assert.Contains(t, record.FullText, "テストエンジニア")
	assert.NotContains(t, record.FullText, "tracking")
	assert.NotContains(t, record.FullText, "color: red")
	assert.NotContains(t, record.FullText, "JavaScriptを有効に")
}

func TestExtractDefaultProfileUsesFirstHeading(t *testing.T) {
	page, err := os.ReadFile("testdata/gakujo.html")
	require.NoError(t, err)

	record, err := Extract(string(page), "https://jobs.example.com/1")
	require.NoError(t, err)

	assert.Equal(t, "サイト共通見出し", record.Title)
}

func TestExtractMissingFields(t *testing.T) {
	record, err := Extract("<html><body><p>本文だけ</p></body></html>", "")
	require.NoError(t, err)

	assert.Empty(t, record.Title)
	assert.Empty(t, record.Salary)
	assert.Equal(t, "本文だけ", strings.TrimSpace(record.FullText))
}

func TestSiteDomain(t *testing.T) {
	assert.Equal(t, "gakujo.ne.jp", SiteDomain("https://www.gakujo.ne.jp/campus/"))
	assert.Equal(t, "re-katsu.jp", SiteDomain("https://re-katsu.jp/career/"))
	assert.Equal(t, "", SiteDomain("::"))
}

func TestImageURLs(t *testing.T) {
	page := `<html><body>
<img src="/img/top.png">
<img src="https://cdn.example.com/banner.jpg">
<img src="/img/top.png">
<img src="data:image/png;base64,AAAA">
<img src="" data-src="lazy/photo.webp">
<img alt="no source">
</body></html>`

	urls, err := ImageURLs(page, "https://example.com/jobs/1")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://example.com/img/top.png",
		"https://cdn.example.com/banner.jpg",
		"https://example.com/jobs/lazy/photo.webp",
	}, urls)
}

func TestImageURLsWithoutImages(t *testing.T) {
	urls, err := ImageURLs("<p>本文のみ</p>", "https://example.com/")
	require.NoError(t, err)
	assert.Empty(t, urls)
}
