package cmd

import (
	"time"

	coreconfig "github.com/AzielCF/az-remind/core/config"
	"github.com/AzielCF/az-remind/pkg/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagDebug  bool
	flagDBPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "az-remind",
	Short: "Reminder scheduling and recurrence engine",
	Long: `az-remind persists reminders, computes their next occurrence under
recurrence rules and tracks per-occurrence delivery status. Delivery itself
(SMS, WhatsApp, Telegram, mail, OS notifications) is left to pluggable
dispatchers.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	initFlags()

	cobra.OnInitialize(initEnvConfig, initApp)
}

// initEnvConfig loads configuration from environment variables
func initEnvConfig() {
	if _, err := coreconfig.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}
	if viper.IsSet("app_debug") {
		coreconfig.Global.App.Debug = viper.GetBool("app_debug")
	}
	if envDBPath := viper.GetString("db_name"); envDBPath != "" {
		coreconfig.Global.Database.Name = envDBPath
	}
}

func initFlags() {
	rootCmd.PersistentFlags().BoolVarP(
		&flagDebug,
		"debug", "d",
		false,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringVarP(
		&flagDBPath,
		"db-path", "",
		"",
		`the database file path (by default, we'll use sqlite3 under storages/reminders.db) --db-path <string> | example: --db-path="storages/reminders.db"`,
	)
}

func initApp() {
	if flagDebug {
		coreconfig.Global.App.Debug = true
	}
	if flagDBPath != "" {
		coreconfig.Global.Database.Name = flagDBPath
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if coreconfig.Global.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalln(err)
	}
}
