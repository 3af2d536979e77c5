package config

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
)

type fileConfig struct {
	Port               string `toml:"port"`
	DataDir            string `toml:"data_dir"`
	ObjectStore        string `toml:"object_store"`
	S3Bucket           string `toml:"s3_bucket"`
	S3Prefix           string `toml:"s3_prefix"`
	RetainAudio        bool   `toml:"retain_audio"`
	OpenAIAPIKey       string `toml:"openai_api_key"`
	TranscriptionModel string `toml:"transcription_model"`
	ChatModel          string `toml:"chat_model"`
	FFmpegPath         string `toml:"ffmpeg_path"`
	InputFormat        string `toml:"input_format"`
	InputDevice        string `toml:"input_device"`
	TemplatesFile      string `toml:"templates_file"`
	RateLimits         struct {
		Transcribe       int `toml:"transcribe"`
		TranscribeChunk  int `toml:"transcribe_chunk"`
		Enhance          int `toml:"enhance"`
		ExtractReminders int `toml:"extract_reminders"`
		API              int `toml:"api"`
	} `toml:"rate_limits"`
}

func loadFile(path string) fileConfig {
	var fc fileConfig
	if path == "" {
		return fc
	}
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		log.Printf("config file %s ignored: %v", path, err)
		return fileConfig{}
	}
	fc.DataDir = expandTilde(fc.DataDir)
	fc.TemplatesFile = expandTilde(fc.TemplatesFile)
	return fc
}

// filePath resolves MEETNOTES_CONFIG or $XDG_CONFIG_HOME/meetnotes/config.toml.
// It returns "" when no file exists.
func filePath() string {
	if explicit := strings.TrimSpace(os.Getenv("MEETNOTES_CONFIG")); explicit != "" {
		return expandTilde(explicit)
	}

	var configDir string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		configDir = filepath.Join(xdg, "meetnotes")
	} else if home, err := os.UserHomeDir(); err == nil {
		configDir = filepath.Join(home, ".config", "meetnotes")
	} else {
		return ""
	}

	path := filepath.Join(configDir, "config.toml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

func expandTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func joinPath(dir, name string) string {
	return filepath.Join(dir, name)
}

func defaultInputFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "pulse"
	}
}

func defaultInputDevice() string {
	switch runtime.GOOS {
	case "darwin":
		return ":default"
	case "windows":
		return "audio=default"
	default:
		return "default"
	}
}
