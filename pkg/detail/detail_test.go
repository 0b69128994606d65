package detail

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

var testContext = types.RequestContext{
	MainURL:    "https://www.thegazette.co.uk/all-notices/notice?results-page=1",
	TargetURL:  "https://www.thegazette.co.uk/notice/4000001",
	FetchURL:   "http://api.scraperapi.com/?api_key=k&url=https%3A%2F%2Fwww.thegazette.co.uk%2Fnotice%2F4000001",
	Credential: "k",
}

// currentLayout は現行レイアウトの詳細ページです。
const currentLayout = `<html><head><title>
  ACME LIMITED | Insolvency | The Gazette</title></head>
<body>
  <div data-gazettes="Notice">
    <div data-gazettes="P">
      <p data-gazettes="Text">In the High Court
         of Justice</p>
      <p data-gazettes="Text">  Company Number: <strong>01234567</strong> </p>
      <p data-gazettes="Text">   </p>
    </div>
    <p>Not part of the primary body</p>
  </div>
  <dl>
    <dt>Type:</dt><dd>Corporate insolvency</dd>
    <dt>Notice type:</dt><dd>Winding-up orders</dd>
    <dt>Publication date:</dt><dd>1 Jan 2020</dd>
    <dt>Edition:</dt><dd>The London Gazette</dd>
    <dt>Notice ID:</dt><dd>4000001</dd>
    <dt>Company number:</dt><dd><a href="/company/01234567">01234567</a>
        <a href="/timeline"><span>Notice timeline for company number</span></a></dd>
    <dt>Notice code:</dt><dd>2452</dd>
  </dl>
</body></html>`

// legacyLayout は旧レイアウト (主セレクターに一致しない) の詳細ページです。
const legacyLayout = `<html><head><title>WIDGETS LTD | The Gazette</title></head>
<body>
  <div data-gazettes="Notice">
    <p>First    legacy
      paragraph</p>
    <p>Second paragraph</p>
  </div>
  <dl>
    <dt>Earliest publish date:</dt><dd>2 Feb 2020</dd>
  </dl>
</body></html>`

func TestParse_CurrentLayout(t *testing.T) {
	record, err := NewParser().Parse([]byte(currentLayout), testContext)
	require.NoError(t, err)

	assert.Equal(t, testContext.MainURL, record.MainURL)
	assert.Equal(t, testContext.TargetURL, record.URL)
	assert.Equal(t, "ACME LIMITED", types.Deref(record.Title))
	assert.Equal(t, []string{"In the High Court of Justice", "Company Number: 01234567"}, record.Description)

	assert.Equal(t, "Corporate insolvency", types.Deref(record.Type))
	assert.Equal(t, "Winding-up orders", types.Deref(record.NoticeType))
	assert.Equal(t, "1 Jan 2020", types.Deref(record.PublicationDate))
	assert.Equal(t, "The London Gazette", types.Deref(record.Edition))
	assert.Equal(t, "4000001", types.Deref(record.NoticeID))
	assert.Equal(t, "01234567", types.Deref(record.CompanyNumber))
	assert.Equal(t, "2452", types.Deref(record.NoticeCode))
	assert.Len(t, record.NoticeDetails, 7)
}

func TestParse_FallbackBodySelector(t *testing.T) {
	record, err := NewParser().Parse([]byte(legacyLayout), testContext)
	require.NoError(t, err)

	assert.Equal(t, "WIDGETS LTD", types.Deref(record.Title))
	assert.Equal(t, []string{"First legacy paragraph", "Second paragraph"}, record.Description)
}

func TestParse_PublicationDate(t *testing.T) {
	tests := []struct {
		name     string
		dl       string
		expected *string
	}{
		{
			name:     "publication_date_only",
			dl:       `<dt>Publication date:</dt><dd>1 Jan 2020</dd>`,
			expected: types.StringPtr("1 Jan 2020"),
		},
		{
			name:     "earliest_publish_date_only",
			dl:       `<dt>Earliest publish date:</dt><dd>2 Feb 2020</dd>`,
			expected: types.StringPtr("2 Feb 2020"),
		},
		{
			name:     "publication_date_preferred",
			dl:       `<dt>Earliest publish date:</dt><dd>2 Feb 2020</dd><dt>Publication date:</dt><dd>1 Jan 2020</dd>`,
			expected: types.StringPtr("1 Jan 2020"),
		},
		{
			name:     "absent",
			dl:       `<dt>Edition:</dt><dd>The London Gazette</dd>`,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := `<html><head><title>T | G</title></head><body><dl>` + tt.dl + `</dl></body></html>`
			record, err := NewParser().Parse([]byte(html), testContext)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, record.PublicationDate)
		})
	}
}

func TestParse_TimelineSentinelDiscarded(t *testing.T) {
	html := `<html><head><title>T</title></head><body><dl>
		<dt>Company number:</dt><dd>
			<span>Notice timeline for company number</span>
			<a>09876543</a></dd>
		<dt>Notice code:</dt><dd>Notice timeline for company number</dd>
	</dl></body></html>`

	record, err := NewParser().Parse([]byte(html), testContext)
	require.NoError(t, err)

	for key, value := range record.NoticeDetails {
		assert.NotContains(t, value, timelineSentinel, "key %s", key)
	}
	assert.Equal(t, "09876543", types.Deref(record.CompanyNumber))
	// 値が文言のみの場合は未取得扱い
	assert.Nil(t, record.NoticeCode)
	assert.NotContains(t, record.NoticeDetails, "Notice code:")
	assert.Contains(t, record.NoticeDetails, "Company number:")
}

func TestParse_Idempotent(t *testing.T) {
	p := NewParser()
	first, err := p.Parse([]byte(currentLayout), testContext)
	require.NoError(t, err)
	second, err := p.Parse([]byte(currentLayout), testContext)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected error
	}{
		{
			name:     "missing_title",
			html:     `<html><head></head><body><div data-gazettes="Notice"><p>x</p></div></body></html>`,
			expected: ErrMissingTitle,
		},
		{
			name:     "blank_title",
			html:     `<html><head><title>   | The Gazette</title></head><body></body></html>`,
			expected: ErrMissingTitle,
		},
		{
			name:     "detail_count_mismatch",
			html:     `<html><head><title>T</title></head><body><dl><dt>Type:</dt><dt>Edition:</dt><dd>only one</dd></dl></body></html>`,
			expected: ErrDetailCountMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := NewParser().Parse([]byte(tt.html), testContext)
			assert.Nil(t, record)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.expected))

			var pErr *types.ParseError
			require.True(t, errors.As(err, &pErr))
			assert.Equal(t, testContext.TargetURL, pErr.URL)
			assert.Equal(t, types.StageDetail, pErr.Stage)
		})
	}
}

func TestParse_NoDetails(t *testing.T) {
	record, err := NewParser().Parse([]byte(`<html><head><title>Only title</title></head><body></body></html>`), testContext)
	require.NoError(t, err)
	assert.Equal(t, "Only title", types.Deref(record.Title))
	assert.Empty(t, record.Description)
	assert.Nil(t, record.NoticeDetails)
	assert.Nil(t, record.Type)
}

// MockFetcher はテスト用の Fetcher の実装です。
type MockFetcher struct {
	htmlContent string
	fetchError  error
	requested   string
}

func (m *MockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	m.requested = url
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	return []byte(m.htmlContent), nil
}

func TestNewExtractor(t *testing.T) {
	t.Run("success_with_valid_fetcher", func(t *testing.T) {
		extractor, err := NewExtractor(&MockFetcher{})
		assert.NoError(t, err)
		assert.NotNil(t, extractor)
	})

	t.Run("error_with_nil_fetcher", func(t *testing.T) {
		extractor, err := NewExtractor(nil)
		assert.Error(t, err)
		assert.Nil(t, extractor)
		assert.Contains(t, err.Error(), "Fetcher cannot be nil")
	})
}

func TestExtractor_FetchAndParse(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fetcher := &MockFetcher{htmlContent: currentLayout}
		extractor, err := NewExtractor(fetcher)
		require.NoError(t, err)

		record, err := extractor.FetchAndParse(context.Background(), testContext)
		require.NoError(t, err)
		assert.Equal(t, testContext.FetchURL, fetcher.requested)
		assert.Equal(t, "ACME LIMITED", types.Deref(record.Title))
	})

	t.Run("fetch_error", func(t *testing.T) {
		extractor, err := NewExtractor(&MockFetcher{fetchError: errors.New("network timeout")})
		require.NoError(t, err)

		record, err := extractor.FetchAndParse(context.Background(), testContext)
		assert.Nil(t, record)
		assert.Error(t, err)
		assert.False(t, types.IsParseError(err))
	})
}
