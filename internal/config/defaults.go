package config

import "time"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Backend: "html",
		Storage: StorageConfig{
			Path:          "~/.config/tvguide",
			SQLiteFile:    "tvguide.db",
			RetentionDays: 7,
			MaxFutureDays: 30,
		},
		Fetch: FetchConfig{
			UserAgent:     "tvguide/1.0",
			Timeout:       30 * time.Second,
			MaxRedirects:  5,
			AllowInsecure: false,
			MaxBytes:      16 << 20,
		},
		HTML: HTMLConfig{
			BaseURL:  "https://www.tvspielfilm.de",
			CDNURL:   "https://a2.tvspielfilm.de",
			Timezone: "Europe/Berlin",
		},
		XMLTVFile: XMLTVFileConfig{
			Path: "",
		},
		XMLTVRemote: XMLTVRemoteConfig{
			BaseURL: "https://xmltv.xmltv.se",
		},
		Images: ImagesConfig{
			CacheDir: "images",
			RedisURL: "",
			TTLHours: 24 * 7,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			File:   "",
		},
	}
}
