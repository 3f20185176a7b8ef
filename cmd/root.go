package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"sleepywoodpecker/freq-monitor/internal/config"
	rserial "sleepywoodpecker/freq-monitor/internal/rSerial"
)

func newRootCmd() *cobra.Command {
	v := viper.New()

	rootCmd := &cobra.Command{
		Use:   "freqmon",
		Short: "Record and compare frequency readings from a serial instrument.",
		Long: `freqmon reads the integer frequency stream a serial instrument prints once per
second, shows it live, optionally records it to the data directory, and
compares previously recorded runs.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(v)
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("data-dir", config.DefaultDataDir, "Directory holding recordings")
	rootCmd.PersistentFlags().String("log-file", config.DefaultLogFile, "File to write logs to")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored output (yes/no/true/false/1/0)")
	bindFlags(v, rootCmd)

	rootCmd.AddCommand(newMonitorCmd(v))
	rootCmd.AddCommand(newResultsCmd(v))
	rootCmd.AddCommand(newPortsCmd())
	rootCmd.AddCommand(newRecordingsCmd(v))
	return rootCmd
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	if err := v.BindPFlags(cmd.PersistentFlags()); err != nil {
		panic(fmt.Sprintf("binding %s persistent flags: %v", cmd.Name(), err))
	}
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		panic(fmt.Sprintf("binding %s flags: %v", cmd.Name(), err))
	}
}

// initConfig reads the config file (if any) and environment variables.
func initConfig(v *viper.Viper) error {
	if configFile := v.GetString("config"); configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".freqmon")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
	}

	v.SetEnvPrefix("FREQMON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("baud", rserial.DefaultBaudRate)
	v.SetDefault("read-timeout", config.DefaultReadTimeout)
	v.SetDefault("range", config.DefaultRange)
	v.SetDefault("start", config.DefaultStart)
	v.SetDefault("baseline", config.DefaultBaseline)
	v.SetDefault("window", config.DefaultWindow)
	v.SetDefault("output", string(config.TableOut))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// loadConfig unmarshals everything viper resolved and validates it.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	input := &config.RawInput{}
	if err := v.Unmarshal(input); err != nil {
		return nil, fmt.Errorf("unable to unmarshal config: %w", err)
	}

	cfg := &config.Config{}
	if err := config.ProcessAndValidate(cfg, input, time.Now()); err != nil {
		return nil, err
	}

	color.NoColor = !cfg.UseColors || !term.IsTerminal(int(os.Stdout.Fd()))
	return cfg, nil
}
