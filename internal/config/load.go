package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loaded captures the resolved config path and parsed values.
type Loaded struct {
	Path   string
	Config Config
	Exists bool
}

// Load resolves, reads, parses, and validates the runtime configuration.
// A missing file is not an error; defaults apply.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	cfg := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Loaded{Path: resolvedPath, Config: cfg}, nil
		}
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	// Unmarshal overlays the file onto defaults; absent keys keep defaults.
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, err)
	}
	if err := cfg.Validate(); err != nil {
		return Loaded{}, fmt.Errorf("validate config %q: %w", resolvedPath, err)
	}

	return Loaded{Path: resolvedPath, Config: cfg, Exists: true}, nil
}

// ResolvePath applies CLI/XDG/home fallback rules for the config location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "quill", "config.yaml"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}
	return filepath.Join(home, ".config", "quill", "config.yaml"), nil
}

// SocketPath returns the configured or default command socket location.
func (c Config) SocketPath() (string, error) {
	if strings.TrimSpace(c.Socket) != "" {
		return c.Socket, nil
	}
	runtimeDir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set and no socket path configured")
	}
	return filepath.Join(runtimeDir, "quill.sock"), nil
}

// TempDir returns the directory holding per-session chunk WAV files.
func (c Config) TempDir() (string, error) {
	if strings.TrimSpace(c.Storage.TempDir) != "" {
		return c.Storage.TempDir, nil
	}
	stateDir, err := resolveStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "quill", "audio"), nil
}

// HistoryPath returns the session history database location.
func (c Config) HistoryPath() (string, error) {
	if strings.TrimSpace(c.History.Path) != "" {
		return c.History.Path, nil
	}
	stateDir, err := resolveStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(stateDir, "quill", "history.sqlite"), nil
}

// resolveStateDir selects XDG_STATE_HOME when available, otherwise
// ~/.local/state.
func resolveStateDir() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory for state: %w", err)
	}
	return filepath.Join(home, ".local", "state"), nil
}
