package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fitops/auditor/internal/rules"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "auditor",
	Short: "Membership data auditor for gym billing exports.",
	Long: `auditor checks gym membership exports (CSV/XLSX) against configurable
billing rules, flags records with red flags, and produces highlighted Excel
audit reports with summary statistics.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level, err := log.ParseLevel(viper.GetString("loglevel"))
		if err != nil {
			level = log.InfoLevel
		}
		log.SetLevel(level)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./auditor.yaml)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("rules", "", "rules file (default is ./config/rules.yaml, built-in rules if absent)")

	viper.BindPFlag("loglevel", rootCmd.PersistentFlags().Lookup("loglevel"))
	viper.BindPFlag("rules_file", rootCmd.PersistentFlags().Lookup("rules"))
}

// initConfig reads in the config file and environment variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("auditor")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("auditor")
	viper.AutomaticEnv()

	viper.SetDefault("port", "8080")
	viper.SetDefault("db_path", "auditor.db")
	viper.SetDefault("outputs_dir", "outputs")
	viper.SetDefault("rules_file", "config/rules.yaml")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.WithError(err).Fatal("Failed to read config file")
		}
	}
}

// loadRules loads the rule configuration, falling back to the built-in
// default rule set when no rules file exists. A malformed rules file is fatal:
// the auditor never runs against an ambiguous rule set.
func loadRules() *rules.Config {
	path := viper.GetString("rules_file")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.WithField("path", path).Info("No rules file found, using built-in default rules")
			return rules.Default()
		}
		log.WithError(err).Fatal("Failed to read rules file")
	}

	cfg, err := rules.Load(data)
	if err != nil {
		log.WithError(err).Fatal("Invalid rule configuration")
	}
	log.WithFields(log.Fields{
		"path":       path,
		"categories": len(cfg.Categories()),
	}).Info("Loaded rule configuration")
	return cfg
}
