// Copyright © 2024 OpenIM. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/openimsdk/tools/errs"
	"github.com/spf13/viper"
)

// Config is fetchdemo's top-level configuration, loaded from a YAML file
// and overridable by FETCHDEMO_-prefixed environment variables.
type Config struct {
	Metrics struct {
		Namespace string `mapstructure:"namespace" validate:"required"`
		Addr      string `mapstructure:"addr" validate:"required,hostname_port"`
	} `mapstructure:"metrics"`

	Cache struct {
		LocalSize int    `mapstructure:"localSize" validate:"gt=0"`
		RedisAddr string `mapstructure:"redisAddr"`
	} `mapstructure:"cache"`

	Users struct {
		BaseURL string `mapstructure:"baseURL"`
	} `mapstructure:"users"`
}

// LoadConfig reads path (a YAML file) into a Config, applying
// FETCHDEMO_-prefixed environment variable overrides, then validates it.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("FETCHDEMO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, errs.WrapMsg(err, "fetchdemo: read config", "path", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.WrapMsg(err, "fetchdemo: unmarshal config", "path", path)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, errs.WrapMsg(err, "fetchdemo: invalid config")
	}
	return &cfg, nil
}
