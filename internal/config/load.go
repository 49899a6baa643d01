package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// candidateFiles are searched in order under a config directory.
var candidateFiles = []string{
	"fluxel.toml",
	"fluxel.yaml",
	"fluxel.yml",
}

// ParseError describes a malformed configuration file.
type ParseError struct {
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load searches dir for a config file, parses the first one found, and
// applies environment overrides. A missing file yields defaults.
func Load(dir string) (Settings, error) {
	settings := Default()

	for _, name := range candidateFiles {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return settings, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := unmarshal(path, data, &settings); err != nil {
			return settings, err
		}
		break
	}

	applyEnv(&settings)
	return settings, nil
}

// LoadFile parses one specific config file, format chosen by extension.
func LoadFile(path string) (Settings, error) {
	settings := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := unmarshal(path, data, &settings); err != nil {
		return settings, err
	}
	applyEnv(&settings)
	return settings, nil
}

func unmarshal(path string, data []byte, out *Settings) error {
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, out)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, out)
	default:
		return &ParseError{Path: path, Message: "unsupported config format"}
	}
	if err != nil {
		return &ParseError{Path: path, Message: err.Error(), Err: err}
	}
	return nil
}

// applyEnv overlays FLUXEL_* environment variables onto the settings.
// Unset variables leave the file values alone; malformed numbers are
// ignored rather than fatal.
func applyEnv(s *Settings) {
	if v, ok := os.LookupEnv("FLUXEL_LOG_LEVEL"); ok {
		s.Logging.Level = v
	}
	if v, ok := os.LookupEnv("FLUXEL_LOG_FORMAT"); ok {
		s.Logging.Format = v
	}
	envInt("FLUXEL_MAX_SOURCE_FILES", &s.Hydration.MaxSourceFiles)
	envInt64("FLUXEL_MAX_UNIT_BYTES", &s.Hydration.MaxUnitBytes)
	envInt64("FLUXEL_MAX_TOTAL_BYTES", &s.Hydration.MaxTotalBytes)
	envInt("FLUXEL_MAX_UNITS_PER_PACKAGE", &s.Hydration.MaxUnitsPerPackage)
	envInt("FLUXEL_MAX_TRANSITIVE_PACKAGES", &s.Hydration.MaxTransitivePackages)
	envInt("FLUXEL_LAZY_BATCH_SIZE", &s.Hydration.LazyBatchSize)
	if v, ok := os.LookupEnv("FLUXEL_EXCLUDE_DIRS"); ok {
		s.Hydration.ExcludeDirs = splitList(v)
	}
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envInt(name string, out *int) {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*out = n
		}
	}
}

func envInt64(name string, out *int64) {
	if v, ok := os.LookupEnv(name); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*out = n
		}
	}
}
