package sandwich

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/WelcomerTeam/Sandwich-QQBot/qq"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvAppID     = "QQBOT_APP_ID"
	EnvToken     = "QQBOT_TOKEN"
	EnvAppSecret = "QQBOT_APP_SECRET"
	EnvSandbox   = "QQBOT_SANDBOX"
)

type Configuration struct {
	Identifier string `json:"identifier" yaml:"identifier"`

	Bot struct {
		AppID     string `json:"app_id" yaml:"app_id"`
		Token     string `json:"-" yaml:"token"`
		AppSecret string `json:"-" yaml:"app_secret"`

		// UseAccessToken authenticates with an app access token instead of the bot token.
		UseAccessToken bool `json:"use_access_token" yaml:"use_access_token"`
		Sandbox        bool `json:"sandbox" yaml:"sandbox"`

		Intents []string `json:"intents" yaml:"intents"`

		// ProxyURL redirects REST requests through another host.
		ProxyURL string `json:"proxy_url" yaml:"proxy_url"`
	} `json:"bot" yaml:"bot"`

	Logging struct {
		Level   string `json:"level" yaml:"level"`
		Console bool   `json:"console" yaml:"console"`

		// FrameDebug prints every raw frame to stderr.
		FrameDebug bool `json:"frame_debug" yaml:"frame_debug"`

		File struct {
			Enabled    bool   `json:"enabled" yaml:"enabled"`
			Filename   string `json:"filename" yaml:"filename"`
			MaxSize    int    `json:"max_size" yaml:"max_size"`
			MaxBackups int    `json:"max_backups" yaml:"max_backups"`
			MaxAge     int    `json:"max_age" yaml:"max_age"`
			Compress   bool   `json:"compress" yaml:"compress"`
		} `json:"file" yaml:"file"`
	} `json:"logging" yaml:"logging"`

	HTTP struct {
		Enabled bool   `json:"enabled" yaml:"enabled"`
		Host    string `json:"host" yaml:"host"`
	} `json:"http" yaml:"http"`

	Producer struct {
		Type          string                 `json:"type" yaml:"type"`
		Channel       string                 `json:"channel" yaml:"channel"`
		ClientName    string                 `json:"client_name" yaml:"client_name"`
		Configuration map[string]interface{} `json:"configuration" yaml:"configuration"`
	} `json:"producer" yaml:"producer"`

	Session struct {
		CloseOnLivenessFailure bool          `json:"close_on_liveness_failure" yaml:"close_on_liveness_failure"`
		PublishWorkers         int           `json:"publish_workers" yaml:"publish_workers"`
		RestartMaxWait         time.Duration `json:"restart_max_wait" yaml:"restart_max_wait"`
	} `json:"session" yaml:"session"`
}

// LoadConfiguration reads the yaml configuration at path and applies environment overrides.
func LoadConfiguration(path string) (*Configuration, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadConfigurationFailure, err)
	}

	configuration := &Configuration{}

	if err = yaml.Unmarshal(file, configuration); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfigurationFailure, err)
	}

	configuration.ApplyEnvironment()
	configuration.applyDefaults()

	if err = configuration.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfigurationFailure, err)
	}

	return configuration, nil
}

// SaveConfiguration writes the configuration back as yaml. Secrets are written too.
func SaveConfiguration(configuration *Configuration, path string) error {
	data, err := yaml.Marshal(configuration)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	return nil
}

// LoadEnvironment loads variables from dotenv files without overriding ones already set.
// Missing files are ignored.
func LoadEnvironment(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}

		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	return nil
}

// ApplyEnvironment overrides bot credentials from the environment.
func (c *Configuration) ApplyEnvironment() {
	if value, ok := os.LookupEnv(EnvAppID); ok {
		c.Bot.AppID = value
	}

	if value, ok := os.LookupEnv(EnvToken); ok {
		c.Bot.Token = value
	}

	if value, ok := os.LookupEnv(EnvAppSecret); ok {
		c.Bot.AppSecret = value
	}

	if value, ok := os.LookupEnv(EnvSandbox); ok {
		if sandbox, err := strconv.ParseBool(value); err == nil {
			c.Bot.Sandbox = sandbox
		}
	}
}

func (c *Configuration) applyDefaults() {
	if c.Identifier == "" {
		c.Identifier = c.Bot.AppID
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.HTTP.Host == "" {
		c.HTTP.Host = "127.0.0.1:5469"
	}

	if c.Producer.Type == "" {
		c.Producer.Type = "noop"
	}

	if c.Producer.Channel == "" {
		c.Producer.Channel = "qqbot"
	}

	if c.Producer.ClientName == "" {
		c.Producer.ClientName = "sandwich-qqbot-" + c.Identifier
	}

	if c.Session.PublishWorkers <= 0 {
		c.Session.PublishWorkers = 8
	}

	if c.Session.RestartMaxWait <= 0 {
		c.Session.RestartMaxWait = time.Minute
	}
}

func (c *Configuration) Validate() error {
	if c.Bot.AppID == "" {
		return ErrMissingAppID
	}

	if c.Bot.UseAccessToken {
		if c.Bot.AppSecret == "" {
			return fmt.Errorf("%w: app secret is required for access tokens", ErrMissingBotToken)
		}
	} else if c.Bot.Token == "" {
		return ErrMissingBotToken
	}

	if _, err := qq.ParseIntents(c.Bot.Intents); err != nil {
		return err
	}

	if !IsProducerType(c.Producer.Type) {
		return fmt.Errorf("%w: %s", ErrUnknownProducer, c.Producer.Type)
	}

	return nil
}

// Intents resolves the configured intent names.
func (c *Configuration) Intents() qq.Intent {
	intents, err := qq.ParseIntents(c.Bot.Intents)
	if err != nil {
		return qq.DefaultIntents
	}

	return intents
}

// Credentials builds the credential provider selected by the configuration.
func (c *Configuration) Credentials() Credentials {
	if c.Bot.UseAccessToken {
		return NewAccessTokenCredentials(c.Bot.AppID, c.Bot.AppSecret, "", nil)
	}

	return StaticCredentials{AppID: c.Bot.AppID, Token: c.Bot.Token}
}

func IsProducerType(name string) bool {
	name = strings.ToLower(name)

	for _, producer := range ProducerTypes() {
		if producer == name {
			return true
		}
	}

	return false
}
