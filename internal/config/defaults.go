package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Sessions.FilePath == "" {
		cfg.Sessions.FilePath = "/usr/local/var/annai/data/sessions.json"
	}
	if cfg.Sessions.SaveDelay == 0 {
		cfg.Sessions.SaveDelay = Duration(500 * time.Millisecond)
	}
	if cfg.Sessions.TTL == 0 {
		cfg.Sessions.TTL = Duration(time.Hour)
	}
	if cfg.Corpus.Source == "" {
		cfg.Corpus.Source = "coda"
	}
	if cfg.Corpus.Coda.BaseURL == "" {
		cfg.Corpus.Coda.BaseURL = "https://coda.io/apis/v1"
	}
	if cfg.Answer.Model == "" {
		cfg.Answer.Model = "gpt-4o-mini"
	}
	if cfg.Answer.BaseURL == "" {
		cfg.Answer.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Answer.Temperature == 0 {
		cfg.Answer.Temperature = 0.2
	}
	if cfg.UsageLog.DatabasePath == "" {
		cfg.UsageLog.DatabasePath = "/usr/local/var/annai/data/usage.db"
	}
	cfg.Ranking.ApplyDefaults()
}
