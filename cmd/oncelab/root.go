// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"code.hybscloud.com/once/internal/benchlab"
	"code.hybscloud.com/once/internal/log"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "oncelab",
	Short: "Measurement lab for the once initialization primitives",
	Long: `oncelab measures the once package the way its fast paths are meant
to be judged: wall time, hardware counters, instruction cache behavior
and machine code size, with every run archived for trend charts.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./oncelab.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("data-dir", "benchdata", "directory for run JSON files")
	rootCmd.PersistentFlags().String("db", "benchdata/lab.db", "history database path")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// explicit .env loading, missing file is fine
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("oncelab")
	}

	viper.SetEnvPrefix("ONCELAB")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("threshold", benchlab.DefaultThreshold)
	viper.SetDefault("listen", ":8080")
	viper.SetDefault("history_limit", 30)
	viper.SetDefault("ingest_queue", 64)

	// A config file is optional; flags and env cover everything.
	_ = viper.ReadInConfig()

	level := "info"
	if viper.GetBool("verbose") {
		level = "debug"
	}
	log.Configure(log.Config{Level: level, Service: "oncelab"})
}
