package config

func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{},
		Store: StoreConfig{
			DBPath: "~/.tgbridge/cache.db",
		},
		Collect: CollectConfig{
			TimeoutSeconds: 60,
			MaxMedia:       5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
