// Package config はスクレイパーの実行設定を読み込みます。
//
// 読み込み順 (後勝ち):
//  1. デフォルト値
//  2. 設定ファイル (config.ini, または viper が扱える yaml/toml/json)
//  3. 環境変数 (GAZETTE_ 接頭辞, .env ファイルを含む)
//
// コマンドラインフラグによる上書きは cmd パッケージで行います。
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/ini.v1"

	"github.com/shouni/go-gazette-scraper/pkg/output"
	"github.com/shouni/go-gazette-scraper/pkg/pagination"
	"github.com/shouni/go-gazette-scraper/pkg/proxy"
)

const (
	// DefaultConfigFile はデフォルトの設定ファイルパスです。
	DefaultConfigFile = "config.ini"
	// EnvPrefix は環境変数の接頭辞です。
	EnvPrefix = "GAZETTE"

	DiscoveryHTML = "html"
	DiscoveryFeed = "feed"
)

// ErrMissingAPIKey は、プロキシのAPIキーが設定されていない場合のエラーです。
var ErrMissingAPIKey = errors.New("APIキーが設定されていません ([Api] api_key または GAZETTE_API_KEY を設定してください)")

// Config はスクレイパーの実行設定です。
type Config struct {
	APIKey        string
	ProxyEndpoint string

	Pages        int
	PageSize     int
	CategoryCode string
	Discovery    string

	Concurrency int
	RateLimit   float64
	RateBurst   int

	Timeout    time.Duration
	MaxRetries uint64

	OutputFormat string
	OutputPath   string

	LogLevel string
}

// Load は path の設定ファイルと環境変数から Config を生成します。
// path が空の場合は DefaultConfigFile を探し、存在しなければ無視します。
// 明示的に指定された path が存在しない場合はエラーになります。
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)
	setupEnv(v)
	if err := bindEnvironmentVariables(v); err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := readConfigFile(v, path, explicit); err != nil {
		return nil, err
	}

	return &Config{
		APIKey:        strings.TrimSpace(v.GetString("api.api_key")),
		ProxyEndpoint: v.GetString("api.endpoint"),
		Pages:         v.GetInt("crawl.pages"),
		PageSize:      v.GetInt("crawl.page_size"),
		CategoryCode:  v.GetString("crawl.category_code"),
		Discovery:     strings.ToLower(v.GetString("crawl.discovery")),
		Concurrency:   v.GetInt("crawl.concurrency"),
		RateLimit:     v.GetFloat64("crawl.rate_limit"),
		RateBurst:     v.GetInt("crawl.rate_burst"),
		Timeout:       v.GetDuration("http.timeout"),
		MaxRetries:    v.GetUint64("http.max_retries"),
		OutputFormat:  strings.ToLower(v.GetString("output.format")),
		OutputPath:    v.GetString("output.path"),
		LogLevel:      v.GetString("log.level"),
	}, nil
}

// Validate は実行前に設定値を検証します。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return ErrMissingAPIKey
	}
	if c.Pages <= 0 {
		return fmt.Errorf("ページ数は1以上を指定してください: %d", c.Pages)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("並列数は1以上を指定してください: %d", c.Concurrency)
	}
	if c.Discovery != DiscoveryHTML && c.Discovery != DiscoveryFeed {
		return fmt.Errorf("discovery には %s または %s を指定してください: %s", DiscoveryHTML, DiscoveryFeed, c.Discovery)
	}
	if _, err := output.ParseFormat(c.OutputFormat); err != nil {
		return err
	}
	return nil
}

// loadEnvFile は .env ファイルを読み込みます (存在しない場合は無視)。
func loadEnvFile() {
	_ = godotenv.Load()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.endpoint", proxy.DefaultEndpoint)
	v.SetDefault("crawl.pages", pagination.DefaultPages)
	v.SetDefault("crawl.page_size", pagination.DefaultPageSize)
	v.SetDefault("crawl.category_code", pagination.DefaultCategoryCode)
	v.SetDefault("crawl.discovery", DiscoveryHTML)
	v.SetDefault("crawl.concurrency", 6)
	v.SetDefault("crawl.rate_limit", 1.0)
	v.SetDefault("crawl.rate_burst", 2)
	v.SetDefault("http.timeout", "30s")
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("output.format", string(output.FormatCSV))
	v.SetDefault("output.path", "")
	v.SetDefault("log.level", "info")
}

func setupEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// bindEnvironmentVariables は設定キーと短い環境変数名を対応付けます。
func bindEnvironmentVariables(v *viper.Viper) error {
	bindings := map[string]string{
		"api.api_key":       "GAZETTE_API_KEY",
		"api.endpoint":      "GAZETTE_PROXY_ENDPOINT",
		"crawl.pages":       "GAZETTE_PAGES",
		"crawl.concurrency": "GAZETTE_CONCURRENCY",
		"log.level":         "GAZETTE_LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("環境変数 %s のバインドに失敗しました: %w", env, err)
		}
	}
	return nil
}

// readConfigFile は設定ファイルを読み込みます。
// .ini は ini.v1 で読み込んでマージし、それ以外は viper に委ねます。
func readConfigFile(v *viper.Viper, path string, explicit bool) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("設定ファイルを読み込めません (%s): %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".ini") {
		return mergeINI(v, path)
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("設定ファイルのパースに失敗しました (%s): %w", path, err)
	}
	return nil
}

// mergeINI は INI ファイルのセクションを viper のネストしたキーとしてマージします。
// 例: [Api] api_key → api.api_key
func mergeINI(v *viper.Viper, path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("INIファイルのパースに失敗しました (%s): %w", path, err)
	}

	settings := make(map[string]any)
	for _, section := range file.Sections() {
		keys := section.Keys()
		if len(keys) == 0 {
			continue
		}
		values := make(map[string]any, len(keys))
		for _, key := range keys {
			values[strings.ToLower(key.Name())] = key.String()
		}
		if section.Name() == ini.DefaultSection {
			for k, val := range values {
				settings[k] = val
			}
			continue
		}
		settings[strings.ToLower(section.Name())] = values
	}

	if err := v.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("INI設定のマージに失敗しました (%s): %w", path, err)
	}
	return nil
}
