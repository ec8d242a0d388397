package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// ErrInvalid marks every configuration problem that must stop startup.
var ErrInvalid = errors.New("invalid config")

// Notification modes accepted in [notify] mode.
const (
	NotifyDesktop = "desktop"
	NotifyConsole = "console"
	NotifyNone    = "none"
)

const (
	defaultConfigPath = "~/.config/cardbridge/config.toml"
	defaultLogDir     = "~/.local/share/cardbridge/logs"
	defaultLogLevel   = "info"

	// SubmitPath is appended to the configured base URL.
	SubmitPath = "/pms/q"

	envTargetReader = "CARDBRIDGE_TARGET_READER"
	envURL          = "CARDBRIDGE_URL"
)

// ExecArgs is the fixed argument list handed to the capture executable.
var ExecArgs = []string{"-read"}

// Config is the immutable settings record shared by every component.
type Config struct {
	TargetReader string
	BaseURL      string
	WorkingDir   string
	ExecFile     string
	ExecArgs     []string
	ResultFile   string // absolute path
	ImageDir     string

	ScheduleExpr    string
	Schedule        cron.Schedule
	KeepImages      bool
	RetentionMonths int

	LogDir   string
	LogLevel string

	NotifyMode  string
	IconSuccess string
	IconFailure string

	StatusAddr string
}

// SubmitURL combines the base URL with the fixed submission path.
func (c Config) SubmitURL() string {
	joined, err := url.JoinPath(c.BaseURL, SubmitPath)
	if err != nil {
		return strings.TrimRight(c.BaseURL, "/") + SubmitPath
	}
	return joined
}

// LogPath returns the primary cardbridge log file.
func (c Config) LogPath() string {
	if strings.TrimSpace(c.LogDir) == "" {
		return filepath.Join(mustExpand(defaultLogDir), "cardbridge.log")
	}
	return filepath.Join(c.LogDir, "cardbridge.log")
}

type rawConfig struct {
	TargetReader    *string `toml:"target_reader"`
	URL             *string `toml:"url"`
	WorkingDir      *string `toml:"working_dir"`
	ExecFile        *string `toml:"exec_file"`
	ResultFile      *string `toml:"result_file"`
	ImageFolder     *string `toml:"image_folder"`
	ImageScheduler  *string `toml:"image_scheduler"`
	KeepImages      any     `toml:"keep_images"`
	CleanUpAfterMon *int64  `toml:"clean_up_after_months"`

	Log struct {
		Dir   string `toml:"dir"`
		Level string `toml:"level"`
	} `toml:"log"`
	Notify struct {
		Mode        string `toml:"mode"`
		IconSuccess string `toml:"icon_success"`
		IconFailure string `toml:"icon_failure"`
	} `toml:"notify"`
	Status struct {
		Addr string `toml:"addr"`
	} `toml:"status"`
}

// Load reads the TOML config at path, overlays values from the dotenv file at
// envPath (or a .env beside the config when envPath is empty), and validates
// the result. Every failure wraps ErrInvalid.
func Load(path, envPath string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return Config{}, fmt.Errorf("%w: read config: %v", ErrInvalid, err)
	}

	var raw rawConfig
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Config{}, fmt.Errorf("%w: parse config: %v", ErrInvalid, err)
	}

	if envPath == "" {
		envPath = filepath.Join(filepath.Dir(resolved), ".env")
	}
	if err := applyEnv(&raw, envPath); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	cfg, err := build(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return cfg, nil
}

func applyEnv(raw *rawConfig, envPath string) error {
	values, err := godotenv.Read(envPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read env file: %w", err)
	}
	if v := strings.TrimSpace(values[envTargetReader]); v != "" {
		raw.TargetReader = &v
	}
	if v := strings.TrimSpace(values[envURL]); v != "" {
		raw.URL = &v
	}
	return nil
}

func build(raw rawConfig) (Config, error) {
	required := []struct {
		name  string
		value *string
	}{
		{"target_reader", raw.TargetReader},
		{"url", raw.URL},
		{"working_dir", raw.WorkingDir},
		{"exec_file", raw.ExecFile},
		{"result_file", raw.ResultFile},
		{"image_folder", raw.ImageFolder},
		{"image_scheduler", raw.ImageScheduler},
	}
	for _, field := range required {
		if field.value == nil {
			return Config{}, fmt.Errorf("field '%s' is missing", field.name)
		}
		if strings.TrimSpace(*field.value) == "" {
			return Config{}, fmt.Errorf("field '%s' must be a non-empty string", field.name)
		}
	}
	if raw.KeepImages == nil {
		return Config{}, fmt.Errorf("field 'keep_images' is missing")
	}
	if raw.CleanUpAfterMon == nil {
		return Config{}, fmt.Errorf("field 'clean_up_after_months' is missing")
	}

	keep, err := parseFlag(raw.KeepImages)
	if err != nil {
		return Config{}, fmt.Errorf("field 'keep_images' %w", err)
	}
	months := *raw.CleanUpAfterMon
	if months < 0 {
		return Config{}, fmt.Errorf("field 'clean_up_after_months' must not be negative")
	}

	baseURL := strings.TrimSpace(*raw.URL)
	if err := validateURL(baseURL); err != nil {
		return Config{}, fmt.Errorf("field 'url' must be a valid URL: %w", err)
	}

	scheduleExpr := strings.TrimSpace(*raw.ImageScheduler)
	schedule, err := ParseSchedule(scheduleExpr)
	if err != nil {
		return Config{}, fmt.Errorf("field 'image_scheduler' %w", err)
	}

	workDir, err := expandPath(*raw.WorkingDir)
	if err != nil {
		return Config{}, fmt.Errorf("field 'working_dir': %w", err)
	}

	cfg := Config{
		TargetReader:    strings.TrimSpace(*raw.TargetReader),
		BaseURL:         baseURL,
		WorkingDir:      workDir,
		ExecFile:        strings.TrimSpace(*raw.ExecFile),
		ExecArgs:        append([]string(nil), ExecArgs...),
		ResultFile:      filepath.Join(workDir, strings.TrimSpace(*raw.ResultFile)),
		ImageDir:        filepath.Join(workDir, strings.TrimSpace(*raw.ImageFolder)),
		ScheduleExpr:    scheduleExpr,
		Schedule:        schedule,
		KeepImages:      keep,
		RetentionMonths: int(months),
		LogLevel:        strings.ToLower(strings.TrimSpace(raw.Log.Level)),
		NotifyMode:      strings.ToLower(strings.TrimSpace(raw.Notify.Mode)),
		IconSuccess:     strings.TrimSpace(raw.Notify.IconSuccess),
		IconFailure:     strings.TrimSpace(raw.Notify.IconFailure),
		StatusAddr:      strings.TrimSpace(raw.Status.Addr),
	}

	cfg.LogDir = strings.TrimSpace(raw.Log.Dir)
	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir
	}
	cfg.LogDir = mustExpand(cfg.LogDir)
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	switch cfg.NotifyMode {
	case "":
		cfg.NotifyMode = NotifyDesktop
	case NotifyDesktop, NotifyConsole, NotifyNone:
	default:
		return Config{}, fmt.Errorf("field 'notify.mode' must be one of %s, %s, %s", NotifyDesktop, NotifyConsole, NotifyNone)
	}
	return cfg, nil
}

// parseFlag accepts a TOML boolean or an integer where zero means false.
func parseFlag(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	default:
		return false, fmt.Errorf("must be a boolean or an integer, got %T", v)
	}
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseSchedule parses a cron expression with an optional leading seconds
// field, or a descriptor such as @daily.
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := scheduleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("must be a valid schedule expression: %w", err)
	}
	return schedule, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
