package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/printbatch/printbatch/internal/flagx"
	"github.com/printbatch/printbatch/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration. Secrets are intentionally absent: tokens
// and passwords come from the environment, never from files.
type JsonConfig struct {
	EndpointAddrHTTP string         `json:"endpoint_addr_http"`
	DatabaseDSN      string         `json:"database_dsn"`
	GitHubRepository string         `json:"github_repository"`
	GitHubRetryBase  timex.Duration `json:"github_retry_base"`
	SMTPHost         string         `json:"smtp_host"`
	SMTPPort         int            `json:"smtp_port"`
	SMTPFrom         string         `json:"smtp_from"`
	SMTPTo           string         `json:"smtp_to"`
	SMTPRetryBase    timex.Duration `json:"smtp_retry_base"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is:
//
//	The -c or -config command-line flags.
//	If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it
// into a JsonConfig. The resulting values are copied into the target Config.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.GitHubRepository = c.GitHubRepository
	config.GitHubRetryBase = time.Duration(c.GitHubRetryBase.Duration)
	config.SMTPHost = c.SMTPHost
	config.SMTPPort = c.SMTPPort
	config.SMTPFrom = c.SMTPFrom
	config.SMTPTo = c.SMTPTo
	config.SMTPRetryBase = time.Duration(c.SMTPRetryBase.Duration)
}
