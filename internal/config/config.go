// 설정 로딩
//
// 우선순위: 기본값 < CONFIG_FILE(YAML) < 환경변수

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	ThreadDump ThreadDumpConfig `yaml:"threadDump"`
	Storage    StorageConfig    `yaml:"storage"`
	Flamegraph FlamegraphConfig `yaml:"flamegraph"`
	AI         AIConfig         `yaml:"ai"`
	GitHub     GitHubConfig     `yaml:"github"`
	Slack      SlackConfig      `yaml:"slack"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type ThreadDumpConfig struct {
	// {podIp}가 파드 IP로 치환된다
	URLTemplate string `yaml:"urlTemplate"`
}

type StorageConfig struct {
	Backend         string `yaml:"backend"` // s3 | gcs
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	CredentialsFile string `yaml:"credentialsFile"` // GCS 서비스 계정 키 (비우면 ADC)
	ProfilingPrefix string `yaml:"profilingPrefix"`
	AnalysisPrefix  string `yaml:"analysisPrefix"`
}

type FlamegraphConfig struct {
	Converter string `yaml:"converter"`
	Include   string `yaml:"include"`
}

type AIConfig struct {
	Provider           string `yaml:"provider"` // gemini | openai | bedrock | none
	APIKey             string `yaml:"apiKey"`
	OpenAIAPIKey       string `yaml:"openaiApiKey"`
	Model              string `yaml:"model"`
	BedrockModelID     string `yaml:"bedrockModelId"`
	MaxTokens          int    `yaml:"maxTokens"`
	BreakerFailures    int    `yaml:"breakerFailures"`
	BreakerOpenSeconds int    `yaml:"breakerOpenSeconds"`
}

type GitHubConfig struct {
	RepoURL  string `yaml:"repoUrl"`
	Token    string `yaml:"token"`
	RepoPath string `yaml:"repoPath"`
	Ref      string `yaml:"ref"`
}

type SlackConfig struct {
	BotToken  string `yaml:"botToken"`
	ChannelID string `yaml:"channelId"`
}

// WebhookConfig - 분석 완료 알림 웹훅. Body에 {{report.*}} 사용 가능
type WebhookConfig struct {
	URL     string            `yaml:"url"`
	Method  string            `yaml:"method"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
}

type PostgresConfig struct {
	DatabaseURL string `yaml:"databaseUrl"`
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"sslMode"`
}

// Enabled - 접속 정보가 하나라도 있으면 run ledger 사용
func (p PostgresConfig) Enabled() bool {
	return p.DatabaseURL != "" || p.User != "" || p.Database != ""
}

type AnalyzerConfig struct {
	Async          bool `yaml:"async"`
	MaxConcurrency int  `yaml:"maxConcurrency"`
}

func defaults() Config {
	return Config{
		Server:     ServerConfig{Port: "8080"},
		ThreadDump: ThreadDumpConfig{URLTemplate: "http://{podIp}:8080/actuator/threaddump"},
		Storage: StorageConfig{
			Backend:         "s3",
			Region:          "us-east-1",
			ProfilingPrefix: "profiling/",
			AnalysisPrefix:  "analysis/",
		},
		Flamegraph: FlamegraphConfig{Converter: "jfrconv"},
		AI: AIConfig{
			Provider:           "gemini",
			BedrockModelID:     "global.anthropic.claude-sonnet-4-20250514-v1:0",
			MaxTokens:          10000,
			BreakerFailures:    3,
			BreakerOpenSeconds: 60,
		},
		Postgres: PostgresConfig{
			Host:    "localhost",
			Port:    "5432",
			SSLMode: "disable",
		},
	}
}

func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	return cfg, nil
}

func applyEnv(c *Config) error {
	setString(&c.Server.Port, "PORT")
	setString(&c.ThreadDump.URLTemplate, "THREAD_DUMP_URL_TEMPLATE")

	setString(&c.Storage.Backend, "STORAGE_BACKEND")
	setString(&c.Storage.Bucket, "ANALYZER_BUCKET")
	setString(&c.Storage.Region, "AWS_REGION")
	setString(&c.Storage.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.CredentialsFile, "GCS_CREDENTIALS_FILE")
	setString(&c.Storage.ProfilingPrefix, "ANALYZER_PREFIX_PROFILING")
	setString(&c.Storage.AnalysisPrefix, "ANALYZER_PREFIX_ANALYSIS")

	setString(&c.Flamegraph.Converter, "FLAMEGRAPH_CONVERTER")
	setString(&c.Flamegraph.Include, "FLAMEGRAPH_INCLUDE")

	setString(&c.AI.Provider, "AI_PROVIDER")
	setString(&c.AI.APIKey, "AI_API_KEY")
	setString(&c.AI.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.AI.Model, "AI_MODEL")
	setString(&c.AI.BedrockModelID, "BEDROCK_MODEL_ID")

	setString(&c.GitHub.RepoURL, "GITHUB_REPO_URL")
	setString(&c.GitHub.Token, "GITHUB_TOKEN")
	setString(&c.GitHub.RepoPath, "GITHUB_REPO_PATH")
	setString(&c.GitHub.Ref, "GITHUB_REF")

	setString(&c.Slack.BotToken, "SLACK_BOT_TOKEN")
	setString(&c.Slack.ChannelID, "SLACK_CHANNEL_ID")

	setString(&c.Webhook.URL, "REPORT_WEBHOOK_URL")
	setString(&c.Webhook.Method, "REPORT_WEBHOOK_METHOD")
	setString(&c.Webhook.Body, "REPORT_WEBHOOK_BODY")

	setString(&c.Postgres.DatabaseURL, "DATABASE_URL")
	setString(&c.Postgres.Host, "PGHOST")
	setString(&c.Postgres.Port, "PGPORT")
	setString(&c.Postgres.User, "PGUSER")
	setString(&c.Postgres.Password, "PGPASSWORD")
	setString(&c.Postgres.Database, "PGDATABASE")
	setString(&c.Postgres.SSLMode, "PGSSLMODE")

	for key, dst := range map[string]*int{
		"AI_MAX_TOKENS":            &c.AI.MaxTokens,
		"AI_BREAKER_FAILURES":      &c.AI.BreakerFailures,
		"AI_BREAKER_OPEN_SECONDS":  &c.AI.BreakerOpenSeconds,
		"ANALYZER_MAX_CONCURRENCY": &c.Analyzer.MaxConcurrency,
	} {
		if err := setInt(dst, key); err != nil {
			return err
		}
	}

	if val := os.Getenv("ANALYZER_ASYNC"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid ANALYZER_ASYNC %q: %w", val, err)
		}
		c.Analyzer.Async = b
	}
	return nil
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) error {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	*dst = n
	return nil
}
