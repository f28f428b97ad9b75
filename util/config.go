package util

import (
	_ "embed"
	"fmt"
	"gopkg.in/yaml.v3"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
)

const Name = "minipub"
const ConfigFileName = "config.yaml"

//go:embed config_default.yaml
var embeddedConfig []byte

type AppConfig struct {
	Conf struct {
		Host        string
		HttpPort    int    `yaml:"httpPort"`
		AppUrl      string `yaml:"appUrl"`
		AdminApiKey string `yaml:"adminApiKey"`
		DbPath      string `yaml:"dbPath"`
	}
}

// BaseURL returns the configured application URL with a trailing slash,
// e.g. "https://example.com/". Actor ids and key ids are built on it.
func (c *AppConfig) BaseURL() string {
	u := c.Conf.AppUrl
	if !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}

// BaseHost returns the host component of the application URL, the value
// webfinger resources are matched against.
func (c *AppConfig) BaseHost() string {
	parsed, err := url.Parse(c.Conf.AppUrl)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

func ReadConf() (*AppConfig, error) {

	c := &AppConfig{}

	configPath := ConfigFileName
	if envPath := os.Getenv("MINIPUB_CONFIG"); envPath != "" {
		configPath = envPath
	}

	buf, err := os.ReadFile(configPath)
	if err != nil {
		log.Printf("Config file not found at %s, using embedded defaults", configPath)
		buf = embeddedConfig
	}

	err = yaml.Unmarshal(buf, c)
	if err != nil {
		return nil, fmt.Errorf("in config file: %w", err)
	}

	envHost := os.Getenv("MINIPUB_HOST")
	envHttpPort := os.Getenv("MINIPUB_HTTPPORT")
	envAppUrl := os.Getenv("MINIPUB_APPURL")
	envAdminApiKey := os.Getenv("MINIPUB_ADMINAPIKEY")
	envDbPath := os.Getenv("MINIPUB_DBPATH")

	if envHost != "" {
		c.Conf.Host = envHost
	}

	if envHttpPort != "" {
		v, err := strconv.Atoi(envHttpPort)
		if err != nil {
			fmt.Println(err)
		}
		c.Conf.HttpPort = v
	}

	if envAppUrl != "" {
		c.Conf.AppUrl = envAppUrl
	}

	if envAdminApiKey != "" {
		c.Conf.AdminApiKey = envAdminApiKey
	}

	if envDbPath != "" {
		c.Conf.DbPath = envDbPath
	}

	if _, err := url.Parse(c.Conf.AppUrl); err != nil {
		return nil, fmt.Errorf("invalid appUrl %q: %w", c.Conf.AppUrl, err)
	}

	return c, nil
}
