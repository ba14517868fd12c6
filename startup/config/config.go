package config

import "os"

type Config struct {
	Port          string
	UserDBHost    string
	UserDBPort    string
	CacheHost     string
	CachePort     string
	JaegerAddress string
	SecretKey     string
}

func NewConfig() *Config {
	return &Config{
		Port:          os.Getenv("DONATION_SERVICE_PORT"),
		UserDBHost:    os.Getenv("USER_DB_HOST"),
		UserDBPort:    os.Getenv("USER_DB_PORT"),
		CacheHost:     os.Getenv("CACHE_HOST"),
		CachePort:     os.Getenv("CACHE_PORT"),
		JaegerAddress: os.Getenv("JAEGER_ADDRESS"),
		SecretKey:     os.Getenv("SECRET_KEY"),
	}
}
