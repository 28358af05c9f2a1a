package rulebook

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("testdata/rulebook.md")
	require.NoError(t, err)
	return string(data)
}

func TestParseFixture(t *testing.T) {
	chunks := Parse(readFixture(t))

	require.Len(t, chunks, 6)

	assert.Equal(t, "大項目１：職種", chunks[0].SectionTitle)
	assert.Equal(t, "職種名は業務内容が分かる名称で記載すること。\n例：「営業」ではなく「法人向けルート営業」", chunks[0].Text)

	assert.Equal(t, "大項目１：職種", chunks[1].SectionTitle)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "性別を限定する職種名"))

	assert.Equal(t, "大項目２：給与", chunks[2].SectionTitle)
	assert.Equal(t, "給与は月給・日給・時給のいずれかで表示すること。", chunks[2].Text)
	assert.Equal(t, "固定残業代を含む場合は、\n金額、充当時間数、超過分の追加支給の3点を明記すること。", chunks[3].Text)
	assert.Equal(t, "最低賃金を下回る金額を記載しないこと。", chunks[4].Text)

	assert.Equal(t, "大項目３：勤務地", chunks[5].SectionTitle)
	assert.Equal(t, "勤務地は市区町村まで記載すること。", chunks[5].Text)

	for _, c := range chunks {
		assert.NotContains(t, c.Text, "どのルールにも含まれない")
	}
}

func TestParseDeterministic(t *testing.T) {
	doc := readFixture(t)
	assert.Equal(t, Parse(doc), Parse(doc))
}

func TestParseChunksNeverEmpty(t *testing.T) {
	doc := "## 大項目１：給与\n[SPLIT]\n   \t \n[SPLIT]   \n給与\t\t  は  月給\n[SPLIT]"
	chunks := Parse(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, "給与 は 月給", chunks[0].Text)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c.Text))
	}
}

func TestParseIgnoredHeaderOnly(t *testing.T) {
	chunks := Parse("### 補足\n本文のみ")
	assert.Empty(t, chunks)
}

func TestParseDropsLinesOutsideSection(t *testing.T) {
	doc := "前書き\n## 大項目１：給与\n給与は月給で表示すること\n### メモ\n孤立した行\n[SPLIT] これも孤立"
	chunks := Parse(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, "給与は月給で表示すること", chunks[0].Text)
}

func TestParseSplitMarkerSeedsNextChunk(t *testing.T) {
	doc := "## 大項目２：給与\n一つ目のルール\n  [SPLIT]  二つ目のルール\n続きの行"
	chunks := Parse(doc)

	require.Len(t, chunks, 2)
	assert.Equal(t, "一つ目のルール", chunks[0].Text)
	assert.Equal(t, "二つ目のルール\n続きの行", chunks[1].Text)
}

func TestParseSectionHeaderVariants(t *testing.T) {
	doc := "  ## 大項目10:休日\n週休二日制の表記ルール\n##大項目３：給与\n給与ルール"
	chunks := Parse(doc)

	require.Len(t, chunks, 2)
	assert.Equal(t, "大項目10:休日", chunks[0].SectionTitle)
	assert.Equal(t, "大項目３：給与", chunks[1].SectionTitle)
}

func TestParseFullWidthIndentedSectionHeader(t *testing.T) {
	doc := "## 大項目１：職種\n職種名は具体的に書くこと\n\u3000## 大項目２：給与\n給与は月給で表示すること\n##\u3000大項目３：勤務地\n勤務地は市区町村まで書くこと"
	chunks := Parse(doc)

	require.Len(t, chunks, 3)
	assert.Equal(t, "大項目１：職種", chunks[0].SectionTitle)
	assert.Equal(t, "職種名は具体的に書くこと", chunks[0].Text)
	assert.Equal(t, "大項目２：給与", chunks[1].SectionTitle)
	assert.Equal(t, "給与は月給で表示すること", chunks[1].Text)
	assert.Equal(t, "大項目３：勤務地", chunks[2].SectionTitle)
}

func TestParseWithCustomOptions(t *testing.T) {
	doc := "## 大項目１：給与\nルールA\n---\nルールB\n#### 注記\nルールC"
	chunks := ParseWithOptions(doc, Options{SplitMarker: "---", IgnoredHeaders: []string{"####"}})

	require.Len(t, chunks, 2)
	assert.Equal(t, "ルールA", chunks[0].Text)
	assert.Equal(t, "ルールB", chunks[1].Text)
}

func TestParseCRLF(t *testing.T) {
	chunks := Parse("## 大項目１：給与\r\n給与は月給で表示すること\r\n")

	require.Len(t, chunks, 1)
	assert.Equal(t, "給与は月給で表示すること", chunks[0].Text)
}

func TestVectorizeAndSections(t *testing.T) {
	chunks := Vectorize(Parse(readFixture(t)))

	for _, c := range chunks {
		assert.Len(t, c.Vector, 10)
	}
	assert.Equal(t, []string{"大項目１：職種", "大項目２：給与", "大項目３：勤務地"}, Sections(chunks))
}
