/*
Copyright © 2024 Dave Rawks <dave@rawks.io>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dispatchling",
	Short: "A dispatch-protocol worker agent",
	Long: `dispatchling runs one or more workers against a job dispatch server.

Each worker registers a single function and executes every job it is
assigned by spawning an external command as a child process: the job's
workload goes to the child's stdin, and newline-delimited JSON events on
the child's stdout stream progress, data, and completion back to the
dispatch server as the job runs.

Examples:
  # Register "resize" against the default dispatch server
  dispatchling worker resize /usr/local/bin/resize-worker

  # Bound concurrency and per-job wall clock time
  dispatchling worker --concurrency 8 --timeout 30s render /opt/bin/render

  # Expose health and Prometheus metrics while running
  dispatchling worker --diag-addr :9090 ocr /opt/bin/ocr-worker`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.dispatchling.yaml)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dispatchling")
	}

	viper.SetEnvPrefix("DISPATCHLING")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
