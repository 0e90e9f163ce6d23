// Copyright 2023 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gorse-io/knnfill/model/knn"
	"github.com/juju/errors"
	"github.com/samber/lo"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "KNNFILL"

// Config is the configuration for knnfill.
type Config struct {
	Model   ModelConfig   `mapstructure:"model"`
	Fill    FillConfig    `mapstructure:"fill"`
	Report  ReportConfig  `mapstructure:"report"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type ModelConfig struct {
	Metric     string `mapstructure:"metric" validate:"oneof=pearson cosine euclidean"`
	Neighbors  int    `mapstructure:"neighbors" validate:"gt=0"`
	Prediction string `mapstructure:"prediction" validate:"oneof=simple mean mean_centered"`
}

type FillConfig struct {
	Mode string `mapstructure:"mode" validate:"oneof=in_place snapshot"`
}

type ReportConfig struct {
	// TracePath is the file the prediction trace is written to. Empty
	// disables the trace.
	TracePath string `mapstructure:"trace_path"`
	// TraceTemplate is an optional Jinja template file overriding the
	// default trace layout.
	TraceTemplate string `mapstructure:"trace_template"`
	// TopN is the number of items recommended to each user.
	TopN int `mapstructure:"top_n" validate:"gte=0"`
	// MaxDisplaySize is the number of users or items from which matrices
	// are too large to be printed.
	MaxDisplaySize int `mapstructure:"max_display_size" validate:"gt=0"`
}

type MetricsConfig struct {
	// File is the Prometheus text file metrics are written to after a run.
	File string `mapstructure:"file"`
}

func GetDefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Metric:     "pearson",
			Neighbors:  3,
			Prediction: "simple",
		},
		Fill: FillConfig{
			Mode: "in_place",
		},
		Report: ReportConfig{
			TracePath:      "predictions.txt",
			TopN:           5,
			MaxDisplaySize: 25,
		},
	}
}

// EngineConfig converts the model section into an engine configuration.
func (config *Config) EngineConfig() (knn.Config, error) {
	metric, err := knn.ParseMetric(config.Model.Metric)
	if err != nil {
		return knn.Config{}, errors.Trace(err)
	}
	formula, err := knn.ParseFormula(config.Model.Prediction)
	if err != nil {
		return knn.Config{}, errors.Trace(err)
	}
	mode, err := knn.ParseFillMode(config.Fill.Mode)
	if err != nil {
		return knn.Config{}, errors.Trace(err)
	}
	return knn.Config{
		Metric:  metric,
		K:       config.Model.Neighbors,
		Formula: formula,
		Mode:    mode,
	}, nil
}

func (config *Config) Validate() error {
	validate := validator.New()
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return errors.Trace(err)
	}
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return field.Tag.Get("mapstructure")
	})
	if err := validate.Struct(config); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := lo.Map(validationErrors, func(e validator.FieldError, _ int) string {
				return e.Translate(trans)
			})
			return errors.NewNotValid(nil, "invalid config: "+strings.Join(messages, "; "))
		}
		return errors.Trace(err)
	}
	return nil
}

func setDefault(v *viper.Viper) {
	defaultConfig := GetDefaultConfig()
	// [model]
	v.SetDefault("model.metric", defaultConfig.Model.Metric)
	v.SetDefault("model.neighbors", defaultConfig.Model.Neighbors)
	v.SetDefault("model.prediction", defaultConfig.Model.Prediction)
	// [fill]
	v.SetDefault("fill.mode", defaultConfig.Fill.Mode)
	// [report]
	v.SetDefault("report.trace_path", defaultConfig.Report.TracePath)
	v.SetDefault("report.trace_template", defaultConfig.Report.TraceTemplate)
	v.SetDefault("report.top_n", defaultConfig.Report.TopN)
	v.SetDefault("report.max_display_size", defaultConfig.Report.MaxDisplaySize)
	// [metrics]
	v.SetDefault("metrics.file", defaultConfig.Metrics.File)
}

// FlagBindings maps command line flags to config keys.
var FlagBindings = map[string]string{
	"metric":       "model.metric",
	"neighbors":    "model.neighbors",
	"prediction":   "model.prediction",
	"fill-mode":    "fill.mode",
	"trace":        "report.trace_path",
	"template":     "report.trace_template",
	"top-n":        "report.top_n",
	"metrics-file": "metrics.file",
}

// LoadConfig loads configuration with the following precedence: changed
// command line flags, KNNFILL_* environment variables, the config file (if
// path is not empty) and defaults.
func LoadConfig(path string, flagSet *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefault(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flagSet != nil {
		for name, key := range FlagBindings {
			if flag := flagSet.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, errors.Trace(err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		// templates and extensionless files are TOML
		if ext := filepath.Ext(path); ext == "" || ext == ".template" {
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Annotatef(err, "failed to read config %s", path)
		}
	}

	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Trace(err)
	}
	if err := conf.Validate(); err != nil {
		return nil, errors.Trace(err)
	}
	return &conf, nil
}
