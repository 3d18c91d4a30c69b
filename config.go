package polyglot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/soypat/polyglot/fortran"
	"github.com/soypat/polyglot/lang"
)

// Config holds the settings of the built in languages.
type Config struct {
	// BestEffort replaces unsupported constructs with placeholder
	// comments instead of failing.
	BestEffort bool `yaml:"best_effort"`
	// FortranForm is one of auto, free or fixed.
	FortranForm string `yaml:"fortran_form"`
	// HeadersOnly renders declarations without bodies.
	HeadersOnly bool `yaml:"headers_only"`
	// Workers bounds concurrent file translations. Zero uses one per CPU.
	Workers int `yaml:"workers"`
	// Preprocessor is the command line run on C and C++ sources before
	// parsing, for example "cpp -P". Empty disables preprocessing.
	Preprocessor string   `yaml:"preprocessor"`
	Include      []string `yaml:"include"`
	// Compilers maps a language name to the command line compiling a
	// source file. {src}, {out} and {name} are replaced by the source path,
	// the artifact path and the module name.
	Compilers map[string]string `yaml:"compilers"`
	LogLevel  string            `yaml:"log_level"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		FortranForm: "auto",
		LogLevel:    "info",
		Compilers: map[string]string{
			lang.C.Name():       "gcc -shared -fPIC -o {out} {src}",
			lang.CPP.Name():     "g++ -std=c++17 -shared -fPIC -o {out} {src}",
			lang.Fortran.Name(): "gfortran -shared -fPIC -o {out} {src}",
			lang.Python.Name():  "python3 -m py_compile {src}",
		},
	}
}

// LoadConfig reads the configuration at path. A missing file yields the
// defaults; fields absent from the file keep their default value.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports settings that cannot be honoured.
func (c *Config) Validate() error {
	if _, ok := fortran.ParseForm(c.FortranForm); !ok {
		return &lang.ContractError{Op: "config", Msg: "unknown fortran form " + c.FortranForm}
	}
	if c.Workers < 0 {
		return &lang.ContractError{Op: "config", Msg: "negative worker count"}
	}
	return nil
}
