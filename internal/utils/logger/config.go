// internal/utils/logger/config.go
package logger

import (
	"errors"
	"io"
	"os"
)

type Config struct {
	LogFile     string // пусто - только консоль
	MaxSize     int    // мегабайты
	MaxAge      int    // дни
	MaxBackups  int    // количество файлов
	Compress    bool   // сжимать ротированные файлы
	Development bool

	Console io.Writer // stdout by default
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "launchpad.log",
		MaxSize:     100,  // 100 MB
		MaxAge:      7,    // 7 дней
		MaxBackups:  3,    // 3 файла
		Compress:    true, // сжимать старые логи
		Development: false,
	}
}

// Validate checks the rotation limits.
func (c *Config) Validate() error {
	if c.LogFile == "" {
		return nil
	}
	if c.MaxSize <= 0 {
		return errors.New("log max size must be positive")
	}
	if c.MaxAge < 0 || c.MaxBackups < 0 {
		return errors.New("log retention must not be negative")
	}
	return nil
}

func (c *Config) console() io.Writer {
	if c.Console != nil {
		return c.Console
	}
	return os.Stdout
}
