package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
sessions:
  file_path: "./data/sessions.json"
  save_delay: "250ms"
  ttl: "30m"
corpus:
  source: "coda"
  coda:
    doc_id: "abc123"
    table_id: "grid-1"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Sessions.SaveDelay.Std() != 250*time.Millisecond {
		t.Errorf("save_delay = %v", cfg.Sessions.SaveDelay.Std())
	}
	if cfg.Sessions.TTL.Std() != 30*time.Minute {
		t.Errorf("ttl = %v", cfg.Sessions.TTL.Std())
	}
	wantSessions := filepath.Join(dir, "data", "sessions.json")
	if cfg.Sessions.FilePath != wantSessions {
		t.Errorf("file_path = %s, want %s", cfg.Sessions.FilePath, wantSessions)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_invalidDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
sessions:
  save_delay: "soon"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for unparseable duration")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Sessions.SaveDelay.Std() != 500*time.Millisecond {
		t.Errorf("default save_delay: got %v", cfg.Sessions.SaveDelay.Std())
	}
	if cfg.Sessions.TTL.Std() != time.Hour {
		t.Errorf("default ttl: got %v", cfg.Sessions.TTL.Std())
	}
	if cfg.Corpus.Source != "coda" {
		t.Errorf("default corpus source: got %s", cfg.Corpus.Source)
	}
	if cfg.Answer.Model == "" || cfg.Answer.BaseURL == "" {
		t.Errorf("answer defaults missing: %+v", cfg.Answer)
	}
	if cfg.Ranking.TitleHitScore == 0 || cfg.Ranking.MaxResults == 0 {
		t.Errorf("ranking defaults missing: %+v", cfg.Ranking)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "dir_source_with_path",
			cfg:  Config{Corpus: CorpusConfig{Source: "dir", Dir: DirConfig{Path: "/srv/sops"}}},
		},
		{
			name:    "dir_source_missing_path",
			cfg:     Config{Corpus: CorpusConfig{Source: "dir"}},
			wantErr: true,
		},
		{
			name: "coda_source_complete",
			cfg:  Config{Corpus: CorpusConfig{Source: "coda", Coda: CodaConfig{DocID: "d", TableID: "t"}}},
		},
		{
			name:    "coda_source_missing_table",
			cfg:     Config{Corpus: CorpusConfig{Source: "coda", Coda: CodaConfig{DocID: "d"}}},
			wantErr: true,
		},
		{
			name:    "unknown_source",
			cfg:     Config{Corpus: CorpusConfig{Source: "s3"}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentialsFromEnv(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_SIGNING_SECRET", "sig-test")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CODA_API_TOKEN", "coda-test")

	creds := CredentialsFromEnv()
	if creds.SlackBotToken != "xoxb-test" || creds.SlackSigningSecret != "sig-test" {
		t.Errorf("slack credentials: %+v", creds)
	}
	if creds.OpenAIAPIKey != "sk-test" || creds.CodaAPIToken != "coda-test" {
		t.Errorf("api credentials: %+v", creds)
	}
}
