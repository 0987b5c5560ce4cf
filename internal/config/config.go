package config

import (
	"strings"

	"github.com/zeromicro/go-zero/rest"

	"github.com/kjanat/gpg-signing-service/third_party/cache"
	"github.com/kjanat/gpg-signing-service/third_party/database"
	"github.com/kjanat/gpg-signing-service/third_party/search"
)

type Config struct {
	rest.RestConf
	Database    database.PostgresConfig
	Redis       cache.RedisConfig
	MeiliSearch search.MeiliSearchConfig `json:",optional"`
	Auth        AuthConfig
	Admin       AdminConfig
	Keys        KeyConfig
	Cors        CorsConfig `json:",optional"`
}

type AuthConfig struct {
	AllowedIssuers   string `json:",env=ALLOWED_ISSUERS"`
	ExpectedAudience string `json:",default=gpg-signing-service,env=EXPECTED_AUDIENCE"`
}

type AdminConfig struct {
	Token string `json:",env=ADMIN_TOKEN"`
}

type KeyConfig struct {
	DefaultKeyID string `json:",optional,env=KEY_ID"`
	Passphrase   string `json:",optional,env=KEY_PASSPHRASE"`
}

type CorsConfig struct {
	AllowedOrigins string `json:",optional,env=ALLOWED_ORIGINS"`
}

// Issuers returns the parsed issuer allow-list.
func (a AuthConfig) Issuers() []string {
	return splitTrimmed(a.AllowedIssuers)
}

// Origins returns the parsed CORS origin allow-list.
func (c CorsConfig) Origins() []string {
	return splitTrimmed(c.AllowedOrigins)
}

func splitTrimmed(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
