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

package main

import (
	"fmt"
	"os"

	"github.com/gorse-io/knnfill/base/log"
	"github.com/gorse-io/knnfill/cmd/version"
	"github.com/gorse-io/knnfill/config"
	"github.com/gorse-io/knnfill/dataset"
	"github.com/juju/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCommand = &cobra.Command{
	Use:          "knnfill",
	Short:        "Fill missing ratings of a utility matrix by user-based collaborative filtering.",
	Example:      "  knnfill -f utility-matrix-5-10-1.txt -m pearson -k 3 -p simple",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.PersistentFlags()
		// Show version
		if showVersion, _ := flags.GetBool("version"); showVersion {
			fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
			return nil
		}

		// setup logger
		debug, _ := flags.GetBool("debug")
		log.SetLogger(flags, debug)

		path, _ := flags.GetString("file")
		if path == "" {
			return errors.NotValidf("empty utility matrix file (use -f or --file)")
		}
		configPath, _ := flags.GetString("config")
		conf, err := config.LoadConfig(configPath, flags)
		if err != nil {
			return errors.Trace(err)
		}
		m, err := dataset.LoadMatrix(path)
		if err != nil {
			return errors.Trace(err)
		}
		quiet, _ := flags.GetBool("quiet")
		return run(cmd.OutOrStdout(), conf, m, !quiet)
	},
}

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), version.BuildInfo())
	},
}

func init() {
	flags := rootCommand.PersistentFlags()
	log.AddFlags(flags)
	flags.Bool("debug", false, "use debug log mode")
	flags.BoolP("version", "v", false, "knnfill version")
	flags.BoolP("quiet", "q", false, "hide the progress bar")
	flags.StringP("config", "c", "", "configuration file path")
	flags.StringP("file", "f", "", "utility matrix file (required)")
	flags.StringP("metric", "m", "pearson", "similarity metric: pearson, cosine or euclidean")
	flags.IntP("neighbors", "k", 3, "number of neighbors")
	flags.StringP("prediction", "p", "simple", "prediction: simple or mean")
	flags.String("fill-mode", "in_place", "fill mode: in_place or snapshot")
	flags.String("trace", "predictions.txt", "prediction trace file, empty to disable")
	flags.String("template", "", "Jinja template file of the prediction trace")
	flags.Int("top-n", 5, "number of items recommended to each user")
	flags.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	rootCommand.AddCommand(versionCommand)
}

func main() {
	if err := rootCommand.Execute(); err != nil {
		log.Logger().Error("failed to execute", zap.Error(err))
		os.Exit(1)
	}
}
