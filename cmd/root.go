/*
Copyright © 2021 Edmond Cotterell

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
	"path/filepath"

	"github.com/Daskott/famtree/colors"
	"github.com/Daskott/famtree/i18n"
	"github.com/Daskott/famtree/utils"
	"github.com/Daskott/famtree/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const DEFAULT_API_URL = "http://localhost:3000"

var (
	cfgFile  string
	config   *viper.Viper
	isDevEnv bool

	warningLabel = colors.Yellow("Warning:")
)

// rootCmd represents the base command when called without any subcommands
var rootCmd *cobra.Command

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd = buildRootCmd()
}

// buildRootCmd returns the root command with every subcommand attached.
func buildRootCmd() *cobra.Command {
	cmd := createRootCmd()
	cmd.Version = fmt.Sprintf("v%s", version.Version)

	cmd.AddCommand(createServerCmd())
	cmd.AddCommand(createMigrateCmd())
	cmd.AddCommand(createTreeCmd())
	cmd.AddCommand(createResourceCmds()...)

	return cmd
}

func createRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use: "famtree",
		Short: `famtree keeps your family's genealogy records.

Run 'famtree server' to host the API, and the resource commands
(e.g. 'famtree members list') to manage records through it.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.famtree.yaml)")
	cmd.PersistentFlags().BoolVarP(&isDevEnv, "dev", "", false, "run in development mode")
	cmd.PersistentFlags().String("api-url", "", "famtree API url, overrides api.url")
	cmd.PersistentFlags().String("token", "", "bearer token, overrides api.token")
	cmd.PersistentFlags().String("lang", "", "language for messages (en, vi), overrides language")

	return cmd
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config = viper.New()

	if cfgFile != "" {
		// Use config file from the flag.
		config.SetConfigFile(cfgFile)
	} else {
		configName, configDir, err := defaultCfgNameAndDir()
		cobra.CheckErr(err)

		// If config file is not found, create one using defaultConfigValue
		configFilePath := filepath.Join(configDir, configName)
		if !utils.FileExist(configFilePath) {
			err = os.WriteFile(configFilePath, []byte(defaultConfigValue()), 0600)
			cobra.CheckErr(err)
		}

		config.AddConfigPath(configDir)
		config.SetConfigType("yaml")
		config.SetConfigName(configName)
	}

	config.SetDefault("api.url", DEFAULT_API_URL)
	config.SetDefault("language", i18n.DEFAULT_LANGUAGE)

	// FAMTREE_API_TOKEN keeps the token out of the config file
	config.BindEnv("api.token", "FAMTREE_API_TOKEN")
	config.BindEnv("api.url", "FAMTREE_API_URL")

	config.BindPFlag("api.url", rootCmd.PersistentFlags().Lookup("api-url"))
	config.BindPFlag("api.token", rootCmd.PersistentFlags().Lookup("token"))
	config.BindPFlag("language", rootCmd.PersistentFlags().Lookup("lang"))

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err == nil && isDevEnv {
		fmt.Fprintln(os.Stderr, "Using config file:", config.ConfigFileUsed())
	}

	i18n.Init(config.GetString("language"))
}

func defaultCfgNameAndDir() (configName string, configDir string, err error) {
	configName = ".famtree.yaml"

	// Use home directory for production
	configDir, err = os.UserHomeDir()
	if err != nil {
		return "", "", err
	}

	if isDevEnv {
		configName = ".famtree.dev.yaml"
		configDir, err = os.Getwd()
		if err != nil {
			return "", "", err
		}
	}

	return configName, configDir, err
}

// defaultConfigValue returns the default content for .famtree.yaml
func defaultConfigValue() string {
	return `api:
  url: "http://localhost:3000"
  # token: <bearer token, or set FAMTREE_API_TOKEN>

# Language of messages shown by the CLI and returned by the API (en, vi)
language: "en"
`
}

func formattedError(format string, a ...interface{}) error {
	return fmt.Errorf(colors.Red(format), a...)
}
