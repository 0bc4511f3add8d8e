package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds tipguard configuration
type Config struct {
	Content ContentConfig `mapstructure:"content"`
	Author  AuthorConfig  `mapstructure:"author"`
	Media   MediaConfig   `mapstructure:"media"`
	Storage StorageConfig `mapstructure:"storage"`
	Batch   BatchConfig   `mapstructure:"batch"`
}

// ContentConfig locates the tip corpus and its enum resources
type ContentConfig struct {
	Root      string `mapstructure:"root"`
	Pattern   string `mapstructure:"pattern"`
	ConfigDir string `mapstructure:"config_dir"`
}

// AuthorConfig holds attribution settings
type AuthorConfig struct {
	ProfileBaseURL string `mapstructure:"profile_base_url"`
}

// MediaConfig holds media fetching settings
type MediaConfig struct {
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	MaxRedirects     int           `mapstructure:"max_redirects"`
	MaxBytes         int64         `mapstructure:"max_bytes"`
	DefaultExtension string        `mapstructure:"default_extension"`
}

// StorageConfig holds R2 object storage settings
type StorageConfig struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	PublicURL       string `mapstructure:"public_url"`
	Endpoint        string `mapstructure:"endpoint"`
}

// BatchConfig holds batch driver settings
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// Default configuration values
var defaultConfig = Config{
	Content: ContentConfig{
		Root:      ".",
		Pattern:   "tips/**/*.{md,mdx}",
		ConfigDir: "config",
	},
	Author: AuthorConfig{
		ProfileBaseURL: "https://github.com",
	},
	Media: MediaConfig{
		FetchTimeout:     30 * time.Second,
		MaxRedirects:     5,
		MaxBytes:         100 << 20,
		DefaultExtension: ".jpg",
	},
	Storage: StorageConfig{
		Bucket: "zed-tips-media",
	},
	Batch: BatchConfig{
		Concurrency: 1,
	},
}

// ProjectConfigFiles are searched, in order, in the working directory.
var ProjectConfigFiles = []string{
	"tipguard.yaml",
	".tipguard.yaml",
}

// storageEnv binds storage keys to the R2 variable names used by deploy tooling.
var storageEnv = []struct {
	key, env string
}{
	{"storage.account_id", "R2_ACCOUNT_ID"},
	{"storage.access_key_id", "R2_ACCESS_KEY_ID"},
	{"storage.secret_access_key", "R2_SECRET_ACCESS_KEY"},
	{"storage.bucket", "R2_BUCKET_NAME"},
	{"storage.public_url", "R2_PUBLIC_URL"},
	{"storage.endpoint", "R2_ENDPOINT"},
}

// LoadConfig loads configuration for the current directory.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigFrom(".", configFile)
}

// LoadConfigFrom loads configuration with dir as the project directory.
// Precedence, lowest first: defaults, project config file, dir/.env,
// environment. A .env value never overrides a variable already set.
func LoadConfigFrom(dir, configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("content.root", defaultConfig.Content.Root)
	v.SetDefault("content.pattern", defaultConfig.Content.Pattern)
	v.SetDefault("content.config_dir", defaultConfig.Content.ConfigDir)
	v.SetDefault("author.profile_base_url", defaultConfig.Author.ProfileBaseURL)
	v.SetDefault("media.fetch_timeout", defaultConfig.Media.FetchTimeout)
	v.SetDefault("media.max_redirects", defaultConfig.Media.MaxRedirects)
	v.SetDefault("media.max_bytes", defaultConfig.Media.MaxBytes)
	v.SetDefault("media.default_extension", defaultConfig.Media.DefaultExtension)
	v.SetDefault("storage.account_id", "")
	v.SetDefault("storage.access_key_id", "")
	v.SetDefault("storage.secret_access_key", "")
	v.SetDefault("storage.bucket", defaultConfig.Storage.Bucket)
	v.SetDefault("storage.public_url", "")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("batch.concurrency", defaultConfig.Batch.Concurrency)

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		for _, name := range ProjectConfigFiles {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", path, err)
			}
			break
		}
	}

	// godotenv.Load leaves variables that are already set untouched
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	v.SetEnvPrefix("TIPGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, b := range storageEnv {
		// TIPGUARD_ name first, then the R2_ alias
		prefixed := "TIPGUARD_" + strings.ToUpper(strings.ReplaceAll(b.key, ".", "_"))
		if err := v.BindEnv(b.key, prefixed, b.env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", b.env, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if config.Storage.Bucket == "" {
		config.Storage.Bucket = defaultConfig.Storage.Bucket
	}
	return &config, nil
}

// Default returns a copy of the built-in configuration.
func Default() Config {
	return defaultConfig
}

// ConfigDir returns the enum resource directory, resolved against the content root.
func (c *Config) ConfigDir() string {
	if filepath.IsAbs(c.Content.ConfigDir) {
		return c.Content.ConfigDir
	}
	return filepath.Join(c.Content.Root, c.Content.ConfigDir)
}

// MissingCredentialsError lists the storage variables that are not set.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Missing, ", ")
}

// InvalidCredentialError reports a storage variable whose value cannot be used.
type InvalidCredentialError struct {
	Name   string
	Value  string
	Reason string
}

func (e *InvalidCredentialError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Name, e.Value, e.Reason)
}

// PublicURLHost returns the host of an absolute http(s) public URL.
func PublicURLHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return "", &InvalidCredentialError{
			Name:   "R2_PUBLIC_URL",
			Value:  raw,
			Reason: "must be an absolute http(s) URL such as https://media.example",
		}
	}
	return u.Hostname(), nil
}

// PublicHost returns the media host taken from the public URL.
func (s StorageConfig) PublicHost() (string, error) {
	if s.PublicURL == "" {
		return "", &MissingCredentialsError{Missing: []string{"R2_PUBLIC_URL"}}
	}
	return PublicURLHost(s.PublicURL)
}

// Validate checks that every credential needed to upload media is present
// and that the public URL is usable. An explicit endpoint stands in for the
// account id.
func (s StorageConfig) Validate() error {
	var missing []string
	if s.AccountID == "" && s.Endpoint == "" {
		missing = append(missing, "R2_ACCOUNT_ID")
	}
	if s.AccessKeyID == "" {
		missing = append(missing, "R2_ACCESS_KEY_ID")
	}
	if s.SecretAccessKey == "" {
		missing = append(missing, "R2_SECRET_ACCESS_KEY")
	}
	if s.PublicURL == "" {
		missing = append(missing, "R2_PUBLIC_URL")
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Missing: missing}
	}
	_, err := PublicURLHost(s.PublicURL)
	return err
}
