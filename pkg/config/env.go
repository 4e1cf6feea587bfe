package config

import (
	"github.com/spf13/viper"
)

// envBindings maps configuration keys to the environment variables that may
// override them.
var envBindings = map[string]string{
	"gitlab.url":   "GITLAB_URL",
	"gitlab.token": "GITLAB_TOKEN",
	"ai.backend":   "LLM_BACKEND",
	"ai.host":      "OLLAMA_HOST",
	"ai.api_base":  "OPENAI_API_BASE",
	"ai.api_key":   "OPENAI_API_KEY",
}

// BindEnv registers the environment overrides on v.
func BindEnv(v *viper.Viper) error {
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// ApplyEnv copies every environment override that is set into c. Secrets
// such as tokens are expected to arrive this way rather than from the file.
func (c *Config) ApplyEnv(v *viper.Viper) {
	if v == nil {
		return
	}
	set := func(key string, dst *string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	set("gitlab.url", &c.GitLab.URL)
	set("gitlab.token", &c.GitLab.Token)
	set("ai.backend", &c.AI.Backend)
	set("ai.host", &c.AI.Host)
	set("ai.api_base", &c.AI.APIBase)
	set("ai.api_key", &c.AI.APIKey)
}
