package pagination

import (
	"fmt"
	"iter"

	"github.com/shouni/go-gazette-scraper/pkg/types"
)

const (
	// Origin は告示レジストリの固定オリジンです。
	Origin = "https://www.thegazette.co.uk"

	DefaultPages        = 15
	DefaultPageSize     = 10
	DefaultCategoryCode = "G105000000"

	// listingTemplate は一覧ページのURLテンプレートです (カテゴリ, ページサイズ, ページ番号)。
	listingTemplate = Origin + "/all-notices/notice?text=&categorycode=%s&noticetypes=&location-postcode-1=&location-distance-1=1&location-local-authority-1=&numberOfLocationSearches=1&start-publish-date=&end-publish-date=&edition=&london-issue=&edinburgh-issue=&belfast-issue=&sort-by=&results-page-size=%d&results-page=%d"

	// feedTemplate は Atom フィード版の一覧URLテンプレートです。
	feedTemplate = Origin + "/all-notices/notice/data.feed?categorycode=%s&results-page-size=%d&results-page=%d"
)

// URLBuilder は、対象URLをプロキシURLに変換します。
type URLBuilder interface {
	Build(targetURL string) string
	Credential() string
}

// Template は一覧URLの形式を表します。
type Template int

const (
	HTMLListing Template = iota
	FeedListing
)

// Generator は、一覧ページのリクエストを 1..Pages の順に生成します。
type Generator struct {
	Builder      URLBuilder
	Pages        int
	PageSize     int
	CategoryCode string
	Template     Template
}

// NewGenerator は、デフォルトのページサイズとカテゴリで Generator を初期化します。
// pages が 0 以下の場合は DefaultPages を使用します。
func NewGenerator(builder URLBuilder, pages int) *Generator {
	if pages <= 0 {
		pages = DefaultPages
	}
	return &Generator{
		Builder:      builder,
		Pages:        pages,
		PageSize:     DefaultPageSize,
		CategoryCode: DefaultCategoryCode,
	}
}

// ListingURL は、指定ページ番号の一覧URL (プロキシ変換前) を返します。
func (g *Generator) ListingURL(page int) string {
	pageSize := g.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	category := g.CategoryCode
	if category == "" {
		category = DefaultCategoryCode
	}

	tmpl := listingTemplate
	if g.Template == FeedListing {
		tmpl = feedTemplate
	}
	return fmt.Sprintf(tmpl, category, pageSize, page)
}

// Requests は一覧ページのリクエストを遅延生成するシーケンスを返します。
// range するたびに 1 ページ目から再開します。
func (g *Generator) Requests() iter.Seq[types.RequestContext] {
	return func(yield func(types.RequestContext) bool) {
		for page := 1; page <= g.Pages; page++ {
			listingURL := g.ListingURL(page)
			rc := types.RequestContext{
				MainURL:    listingURL,
				TargetURL:  listingURL,
				FetchURL:   g.Builder.Build(listingURL),
				Credential: g.Builder.Credential(),
			}
			if !yield(rc) {
				return
			}
		}
	}
}
