package config

// Config is the whole bot configuration. YAML and JSON are both accepted;
// YAML is coerced to JSON and decoded strictly, so unknown keys fail fast.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "5m").
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Feed     FeedConfig     `json:"feed,omitempty"`
	Reminder ReminderConfig `json:"reminder,omitempty"`
	Registry RegistryConfig `json:"registry,omitempty"`
	Trigger  TriggerConfig  `json:"trigger,omitempty"`

	// LocalTimezone is the subscriber-facing IANA zone used for digests and
	// reminder windows. Default: Asia/Ho_Chi_Minh.
	LocalTimezone string `json:"local_timezone,omitempty"`
}

type TelegramConfig struct {
	// Token may also come from the TELEGRAM_TOKEN environment variable,
	// which wins over the file value.
	Token          string `json:"token,omitempty"`
	PollTimeout    string `json:"poll_timeout,omitempty"`
	SendRatePerSec int    `json:"send_rate_per_sec,omitempty"`

	// TradeURL is the referral link behind the digest's trade button.
	TradeURL string `json:"trade_url,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console"`
	File    LoggingFileConfig `json:"file,omitempty"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// FeedConfig points at the upstream event/price endpoints. Empty values keep
// the built-in alpha123.uk defaults.
type FeedConfig struct {
	EventsURL     string `json:"events_url,omitempty"`
	PricesURL     string `json:"prices_url,omitempty"`
	EventsTimeout string `json:"events_timeout,omitempty"` // default 20s
	PricesTimeout string `json:"prices_timeout,omitempty"` // default 10s

	// Timezone the feed publishes clock values in. Default: Asia/Shanghai.
	Timezone string `json:"timezone,omitempty"`
}

type ReminderConfig struct {
	Enabled bool `json:"enabled"`

	// Schedule is a robfig/cron spec for the periodic sweep.
	// Default: "@every 1m".
	Schedule string `json:"schedule,omitempty"`

	Window    string `json:"window,omitempty"`     // default 5m
	MarkerTTL string `json:"marker_ttl,omitempty"` // default 1h
}

// RegistryConfig selects the subscriber/marker store.
//
// Example:
//
//	"registry": { "driver": "redis", "addr": "127.0.0.1:6379" }
type RegistryConfig struct {
	Driver      string `json:"driver,omitempty"` // redis | sqlite | memory | none
	Addr        string `json:"addr,omitempty"`   // redis; REDIS_ADDR env wins
	DB          int    `json:"db,omitempty"`
	Path        string `json:"path,omitempty"` // sqlite
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type TriggerConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default "127.0.0.1:8390"

	// Secret guards the sweep endpoint; CRON_SECRET env wins over the file.
	Secret string `json:"secret,omitempty"`
}
