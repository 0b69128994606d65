package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shouni/go-gazette-scraper/pkg/pagination"
)

// resolveNoticeURL は notice コマンドの引数を詳細ページの絶対URLに変換します。
// 受け付ける形式は 告示ID (数字のみ)、ルート相対パス、ホスト名から始まるURL、http(s) のURL です。
func resolveNoticeURL(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("URLが空です")
	}

	if strings.Trim(input, "0123456789") == "" {
		return pagination.Origin + "/notice/" + input, nil
	}
	if strings.HasPrefix(input, "/") && !strings.HasPrefix(input, "//") {
		return pagination.Origin + input, nil
	}

	target, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("告示URLの解析に失敗しました: %w", err)
	}
	switch target.Scheme {
	case "http", "https":
		return target.String(), nil
	case "":
		// www.thegazette.co.uk/notice/1 や //www.thegazette.co.uk/notice/1 は https とみなす
		return "https://" + strings.TrimPrefix(input, "//"), nil
	default:
		return "", fmt.Errorf("告示URLのスキームは http または https である必要があります: %s", input)
	}
}
