package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/meltforce/ultimatecoach/internal/engine"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Tailscale   TailscaleConfig   `yaml:"tailscale"`
	Progression ProgressionConfig `yaml:"progression"`
	Program     ProgramConfig     `yaml:"program"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

type AuthConfig struct {
	APIKey string `yaml:"api_key"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// ProgressionConfig holds the settings that feed every engine.Rule.
type ProgressionConfig struct {
	BarbellInc        float64 `yaml:"barbell_inc"`
	DBInc             float64 `yaml:"db_inc"`
	DeloadPct         float64 `yaml:"deload_pct"`
	MissLimit         int     `yaml:"miss_limit"`
	EnableRIR         *bool   `yaml:"enable_rir"`
	AutoPeriodization *bool   `yaml:"auto_periodization"`
	// PhaseHistoryExposures is how many completed exposures feed the phase decision.
	PhaseHistoryExposures int `yaml:"phase_history_exposures"`
}

type ProgramConfig struct {
	TemplatePath string `yaml:"template_path"`
	StartDate    string `yaml:"start_date"`
}

// DSN returns a PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	sslmode := d.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslmode)
}

// Rule builds the engine rule for an exercise's equipment.
func (p ProgressionConfig) Rule(equipment string) engine.Rule {
	return engine.Rule{
		Equipment:  equipment,
		BarbellInc: p.BarbellInc,
		DBInc:      p.DBInc,
		DeloadPct:  p.DeloadPct,
		MissLimit:  p.MissLimit,
	}
}

// RIREnabled reports whether RIR values are kept when sets are logged.
func (p ProgressionConfig) RIREnabled() bool {
	return p.EnableRIR == nil || *p.EnableRIR
}

// AutoPeriodizationEnabled reports whether phases switch automatically.
func (p ProgressionConfig) AutoPeriodizationEnabled() bool {
	return p.AutoPeriodization == nil || *p.AutoPeriodization
}

// DefaultProgression returns the settings the app ships with.
func DefaultProgression() ProgressionConfig {
	return ProgressionConfig{
		BarbellInc:            2.5,
		DBInc:                 2.0,
		DeloadPct:             0.10,
		MissLimit:             3,
		PhaseHistoryExposures: 2,
	}
}

// ParseStartDate parses program.start_date. The zero time means "use the
// template's start date".
func (p ProgramConfig) ParseStartDate() (time.Time, error) {
	if p.StartDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", p.StartDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("program.start_date: %w", err)
	}
	return t, nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
// Env vars use the prefix COACH_ and underscore-separated paths:
//
//	COACH_SERVER_HOST, COACH_SERVER_PORT,
//	COACH_DB_HOST, COACH_DB_PORT, COACH_DB_NAME,
//	COACH_DB_USER, COACH_DB_PASSWORD, COACH_DB_SSLMODE,
//	COACH_AUTH_API_KEY,
//	COACH_TAILSCALE_ENABLED, COACH_TAILSCALE_HOSTNAME,
//	COACH_BARBELL_INC, COACH_DB_INC
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("COACH_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("COACH_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("COACH_DB_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("COACH_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("COACH_DB_NAME"); v != "" {
		cfg.Database.Name = v
	}
	if v := os.Getenv("COACH_DB_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("COACH_DB_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("COACH_DB_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("COACH_AUTH_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}
	if v := os.Getenv("COACH_TAILSCALE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Tailscale.Enabled = enabled
		}
	}
	if v := os.Getenv("COACH_TAILSCALE_HOSTNAME"); v != "" {
		cfg.Tailscale.Hostname = v
	}
	if v := os.Getenv("COACH_BARBELL_INC"); v != "" {
		if inc, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Progression.BarbellInc = inc
		}
	}
	if v := os.Getenv("COACH_DB_INC"); v != "" {
		if inc, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Progression.DBInc = inc
		}
	}
}

// applyDefaults fills unset progression values. Explicit values, including
// invalid ones, are left for validate to reject.
func applyDefaults(cfg *Config) {
	def := DefaultProgression()
	p := &cfg.Progression
	if p.BarbellInc == 0 {
		p.BarbellInc = def.BarbellInc
	}
	if p.DBInc == 0 {
		p.DBInc = def.DBInc
	}
	if p.DeloadPct == 0 {
		p.DeloadPct = def.DeloadPct
	}
	if p.MissLimit == 0 {
		p.MissLimit = def.MissLimit
	}
	if p.PhaseHistoryExposures == 0 {
		p.PhaseHistoryExposures = def.PhaseHistoryExposures
	}
	if cfg.Tailscale.Enabled && cfg.Tailscale.Hostname == "" {
		cfg.Tailscale.Hostname = "coach"
	}
}

func (c *Config) validate() error {
	if c.Server.Port == 0 && !c.Tailscale.Enabled {
		return fmt.Errorf("server.port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port == 0 {
		return fmt.Errorf("database.port is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key is required")
	}
	if err := c.Progression.Rule(engine.EquipmentBarbell).Validate(); err != nil {
		return fmt.Errorf("progression: %w", err)
	}
	if c.Progression.PhaseHistoryExposures < 1 {
		return fmt.Errorf("progression.phase_history_exposures must be at least 1")
	}
	if _, err := c.Program.ParseStartDate(); err != nil {
		return err
	}
	return nil
}
