package config

import (
	"os"
	"time"

	"github.com/go-yaml/yaml"
)

type Config struct {
	Server Server `yaml:"server"`
	Auth   Auth   `yaml:"auth"`
	Quotas Quotas `yaml:"quotas"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

type Auth struct {
	TokenSecret string `yaml:"tokenSecret"`
	// TokenTTLSeconds is deliberately short; clients re-authenticate
	// by signing a fresh challenge.
	TokenTTLSeconds int `yaml:"tokenTTLSeconds"`
}

func (a Auth) TokenTTL() time.Duration {
	if a.TokenTTLSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(a.TokenTTLSeconds) * time.Second
}

// Quotas is the per-role item policy inside a group. Zero values fall
// back to the defaults.
type Quotas struct {
	OwnerItems  int `yaml:"ownerItems"`
	MemberItems int `yaml:"memberItems"`
}

func (q Quotas) OwnerItemLimit() int {
	if q.OwnerItems <= 0 {
		return 5
	}
	return q.OwnerItems
}

func (q Quotas) MemberItemLimit() int {
	if q.MemberItems <= 0 {
		return 3
	}
	return q.MemberItems
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.Listen == "" {
		config.Server.Listen = ":8000"
	}

	return config, nil
}
