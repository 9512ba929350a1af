package logger

// Config holds logging configuration
type Config struct {
	Level          string `yaml:"level" env:"LEVEL"`
	ConsoleEnabled bool   `yaml:"console_enabled" env:"CONSOLE_ENABLED"`
	ConsoleFormat  string `yaml:"console_format" env:"CONSOLE_FORMAT"`
	FileEnabled    bool   `yaml:"file_enabled" env:"FILE_ENABLED"`
	FilePath       string `yaml:"file_path" env:"FILE_PATH"`
	FileFormat     string `yaml:"file_format" env:"FILE_FORMAT"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb" env:"FILE_MAX_SIZE_MB"`
	FileMaxBackups int    `yaml:"file_max_backups" env:"FILE_MAX_BACKUPS"`
	FileMaxAgeDays int    `yaml:"file_max_age_days" env:"FILE_MAX_AGE_DAYS"`
	FileCompress   bool   `yaml:"file_compress" env:"FILE_COMPRESS"`
}

// DefaultConfig logs INFO as text to the console only.
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FileEnabled:    false,
		FilePath:       "logs/starforce.log",
		FileFormat:     "text",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}
