package config

import "github.com/ZehuaKcrissLi/yingjiesheng-job-scraper/internal/logger"

type Config struct {
	Site struct {
		SearchBase string `json:"search_base" mapstructure:"search_base" validate:"required,url"`
		LoginURL   string `json:"login_url" mapstructure:"login_url" validate:"required,url"`
		APIPattern string `json:"api_pattern" mapstructure:"api_pattern" validate:"required"`
	} `json:"site" mapstructure:"site"`

	Crawl struct {
		Keyword            string `json:"keyword" mapstructure:"keyword" validate:"required"`
		AreaName           string `json:"area_name" mapstructure:"area_name"`
		MaxPageActions     int    `json:"max_page_actions" mapstructure:"max_page_actions" validate:"gte=1"`
		MinDelaySeconds    int    `json:"min_delay_s" mapstructure:"min_delay_s" validate:"gte=0"`
		MaxDelaySeconds    int    `json:"max_delay_s" mapstructure:"max_delay_s" validate:"gte=0"`
		ClickTimeoutMs     int    `json:"click_timeout_ms" mapstructure:"click_timeout_ms" validate:"gte=100"`
		NoProgressLimit    int    `json:"no_progress_limit" mapstructure:"no_progress_limit" validate:"gte=1"`
		NextBtnSelector    string `json:"next_btn_selector" mapstructure:"next_btn_selector" validate:"required"`
		NextBtnXPath       string `json:"next_btn_xpath" mapstructure:"next_btn_xpath"`
		ScrollOffsetPx     int    `json:"scroll_offset_px" mapstructure:"scroll_offset_px" validate:"gte=0"`
		NavigationAttempts int    `json:"navigation_attempts" mapstructure:"navigation_attempts" validate:"gte=1"`
		NavigationTimeoutS int    `json:"navigation_timeout_s" mapstructure:"navigation_timeout_s" validate:"gte=1"`
		FirstPageTimeoutS  int    `json:"first_page_timeout_s" mapstructure:"first_page_timeout_s" validate:"gte=1"`
		ArrivalTimeoutS    int    `json:"arrival_timeout_s" mapstructure:"arrival_timeout_s" validate:"gte=1"`
		DebugDir           string `json:"debug_dir" mapstructure:"debug_dir" validate:"required"`
	} `json:"crawl" mapstructure:"crawl"`

	Rod struct {
		UserDataDir          string `json:"user_data_dir" mapstructure:"user_data_dir"`
		Headless             bool   `json:"headless" mapstructure:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features" mapstructure:"disable_blink_features"`
		Incognito            bool   `json:"incognito" mapstructure:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage" mapstructure:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox" mapstructure:"no_sandbox"`
		UserAgent            string `json:"user_agent" mapstructure:"user_agent"`
		Leakless             bool   `json:"leakless" mapstructure:"leakless"`
		Bin                  string `json:"bin" mapstructure:"bin"`
		ListenerCacheSize    int    `json:"listener_cache_size" mapstructure:"listener_cache_size" validate:"gte=16"`
	} `json:"rod" mapstructure:"rod"`

	Chromedp struct {
		UserDataDir          string `json:"user_data_dir" mapstructure:"user_data_dir"`
		DisableBlinkFeatures string `json:"disable_blink_features" mapstructure:"disable_blink_features"`
		NoSandbox            bool   `json:"no_sandbox" mapstructure:"no_sandbox"`
		UserAgent            string `json:"user_agent" mapstructure:"user_agent"`
	} `json:"chromedp" mapstructure:"chromedp"`

	Output struct {
		Dir             string `json:"dir" mapstructure:"dir"`
		JobsJSONL       string `json:"jobs_jsonl" mapstructure:"jobs_jsonl"`
		PagesJSONL      string `json:"pages_jsonl" mapstructure:"pages_jsonl"`
		BadResponsesLog string `json:"bad_responses_log" mapstructure:"bad_responses_log" validate:"required"`
	} `json:"output" mapstructure:"output"`

	Session struct {
		StatePath string `json:"state_path" mapstructure:"state_path" validate:"required"`
	} `json:"session" mapstructure:"session"`

	Area struct {
		CityDictPath      string   `json:"city_dict_path" mapstructure:"city_dict_path" validate:"required"`
		CityDictURL       string   `json:"city_dict_url" mapstructure:"city_dict_url" validate:"required,url"`
		NationwideAliases []string `json:"nationwide_aliases" mapstructure:"nationwide_aliases"`
	} `json:"area" mapstructure:"area"`

	Elasticsearch struct {
		Enabled  bool   `json:"enabled" mapstructure:"enabled"`
		Username string `json:"username" mapstructure:"username"`
		Password string `json:"password" mapstructure:"password"`
		Address  string `json:"address" mapstructure:"address" validate:"required_if=Enabled true"`
		Index    string `json:"index" mapstructure:"index" validate:"required_if=Enabled true"`
	} `json:"elasticsearch" mapstructure:"elasticsearch"`

	Embedder struct {
		Enabled   bool   `json:"enabled" mapstructure:"enabled"`
		Host      string `json:"host" mapstructure:"host"`
		Port      int    `json:"port" mapstructure:"port"`
		Model     string `json:"model" mapstructure:"model" validate:"required_if=Enabled true"`
		Dims      int    `json:"dims" mapstructure:"dims" validate:"gte=0"`
		BatchSize int    `json:"batch_size" mapstructure:"batch_size" validate:"gte=0"`
	} `json:"embedder" mapstructure:"embedder"`

	Metrics struct {
		ListenAddr string `json:"listen_addr" mapstructure:"listen_addr"`
	} `json:"metrics" mapstructure:"metrics"`

	Log logger.Config `json:"log" mapstructure:"log"`
}
