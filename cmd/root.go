package cmd

import (
	"errors"
	"log"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "sentiq-screener"

	defaultRPM         = 10
	defaultCacheFile   = "llm_cache.db"
	defaultDBPath      = "candidates.db"
	defaultUploadsDir  = "uploads"
	defaultPort        = 8080
	defaultGeminiModel = "gemini-2.5-flash"
	defaultGroqModel   = "llama3-70b-8192"
)

type Config struct {
	RPM            int           `mapstructure:"rpm"`
	CacheFile      string        `mapstructure:"cache-file"`
	DBPath         string        `mapstructure:"db-path"`
	UploadsDir     string        `mapstructure:"uploads-dir"`
	Simulate       bool          `mapstructure:"simulate"`
	PreferProvider string        `mapstructure:"prefer-provider"`
	Gemini         *GeminiConfig `mapstructure:"gemini"`
	Groq           *GroqConfig   `mapstructure:"groq"`
	Server         *ServerConfig `mapstructure:"server"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

type GroqConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base-url"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "sentiq-screener screens resumes against a job description with LLM providers",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBinds := map[string]string{
		"gemini.api-key": "GEMINI_API_KEY",
		"groq.api-key":   "GROQ_API_KEY",
		"rpm":            "SENTIQ_RPM",
		"cache-file":     "SENTIQ_CACHE_FILE",
		"db-path":        "SENTIQ_DB_PATH",
		"simulate":       "SENTIQ_SIMULATE",
		"server.port":    "PORT",
	}
	for key, env := range envBinds {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is sentiq-screener.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().Bool("simulate", false, "never call providers, return canned responses")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("simulate", rootCmd.PersistentFlags().Lookup("simulate"))
}

func initConfig() {
	// Secrets may live in a local .env file. Missing file is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// The config file is optional: every key has a default or an
	// environment binding. A present but broken file is still fatal.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	if config.RPM <= 0 {
		config.RPM = defaultRPM
	}
	if config.CacheFile == "" {
		config.CacheFile = defaultCacheFile
	}
	if config.DBPath == "" {
		config.DBPath = defaultDBPath
	}
	if config.UploadsDir == "" {
		config.UploadsDir = defaultUploadsDir
	}
	if config.Gemini == nil {
		config.Gemini = &GeminiConfig{}
	}
	if config.Gemini.Model == "" {
		config.Gemini.Model = defaultGeminiModel
	}
	if config.Groq == nil {
		config.Groq = &GroqConfig{}
	}
	if config.Groq.Model == "" {
		config.Groq.Model = defaultGroqModel
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}
	if config.Server.Port <= 0 {
		config.Server.Port = defaultPort
	}

	return config, nil
}
