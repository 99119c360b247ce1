package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	devconfig "github.com/Daskott/famtree/dev/config"
	"github.com/Daskott/famtree/server"
	"github.com/Daskott/famtree/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serverConfigFile string

	// database.dsn -> DATABASE_DSN
	envKeyReplacer = strings.NewReplacer(".", "_")
)

func createServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start a famtree server",
		Long: `The famtree server hosts the REST API for families, members, relationships,
events, media and memories, and runs background jobs such as SMS event reminders`,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := serverConfig()
			if err != nil {
				return err
			}

			server.Start(config, isDevEnv)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "config for server (default is dev/config/server.yml in --dev mode)")

	return cmd
}

// serverConfig reads the server config from --sconfig, or from the dev
// config in --dev mode. Env vars such as DATABASE_DSN override file values.
func serverConfig() (*viper.Viper, error) {
	config := viper.New()

	if isDevEnv && serverConfigFile == "" {
		path, err := devConfigFilePath()
		if err != nil {
			return nil, err
		}
		serverConfigFile = path
	}

	if serverConfigFile == "" {
		return nil, formattedError("--sconfig is required when not in --dev mode")
	}

	config.SetConfigFile(serverConfigFile)
	config.SetEnvKeyReplacer(envKeyReplacer)
	config.AutomaticEnv() // read in environment variables that match

	if err := config.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading server config file: %v", err)
	}

	return config, nil
}

// devConfigFilePath returns dev/config/server.yml, writing the default dev
// config there first if it is missing.
func devConfigFilePath() (string, error) {
	configDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	configDir = filepath.Join(configDir, "dev", "config")
	configFilePath := filepath.Join(configDir, "server.yml")

	if !utils.FileExist(configFilePath) {
		if err = utils.CreateDirIfNotExist(configDir); err != nil {
			return "", err
		}

		err = os.WriteFile(configFilePath, []byte(devconfig.SERVER_YML), 0600)
		if err != nil {
			return "", err
		}
	}

	return configFilePath, nil
}
