package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr             string
		RateLimitPerHour int
		RateLimitBurst   int
	}
	Database struct {
		Path string
	}
	Auth struct {
		CookieSecret   string
		CookieTTLHours int
	}
	Mail struct {
		Server string
		Sender string
	}
	Site struct {
		Name    string
		BaseURL string
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()

	v := viper.New()
	v.SetEnvPrefix("MAZE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.ratelimitperhour", 50)
	v.SetDefault("server.ratelimitburst", 20)
	v.SetDefault("database.path", "data/maze.db")
	v.SetDefault("auth.cookiesecret", "")
	v.SetDefault("auth.cookiettlhours", 24)
	v.SetDefault("mail.server", "")
	v.SetDefault("mail.sender", "noreply@maze-arcade.local")
	v.SetDefault("site.name", "Maze Arcade")
	v.SetDefault("site.baseurl", "http://localhost:8080")

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
