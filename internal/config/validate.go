package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrNoExtensions indicates an empty extension set
	ErrNoExtensions = errors.New("no source extensions")

	// ErrInvalidExtension indicates an extension without a leading dot
	ErrInvalidExtension = errors.New("invalid source extension")

	// ErrInvalidLimit indicates a negative or zero bound
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrInvalidAddr indicates an unparseable listen address
	ErrInvalidAddr = errors.New("invalid server address")

	// ErrInvalidDebounce indicates a non-positive watch debounce
	ErrInvalidDebounce = errors.New("invalid watch debounce")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateScan(&cfg.Scan); err != nil {
		errs = append(errs, err)
	}

	if err := validateParse(&cfg.Parse); err != nil {
		errs = append(errs, err)
	}

	if err := validateServer(&cfg.Server); err != nil {
		errs = append(errs, err)
	}

	if cfg.Watch.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("%w: debounce must be positive, got %s", ErrInvalidDebounce, cfg.Watch.Debounce))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateScan(cfg *ScanConfig) error {
	var errs []error

	if len(cfg.Extensions) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one extension required", ErrNoExtensions))
	}
	for _, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("%w: %q must start with '.'", ErrInvalidExtension, ext))
		}
	}

	// Zero means unlimited
	if cfg.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("%w: scan.max_depth cannot be negative, got %d", ErrInvalidLimit, cfg.MaxDepth))
	}
	if cfg.MaxFiles < 0 {
		errs = append(errs, fmt.Errorf("%w: scan.max_files cannot be negative, got %d", ErrInvalidLimit, cfg.MaxFiles))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateParse(cfg *ParseConfig) error {
	var errs []error

	if cfg.MaxFileSizeBytes <= 0 {
		errs = append(errs, fmt.Errorf("%w: parse.max_file_size_bytes must be positive, got %d", ErrInvalidLimit, cfg.MaxFileSizeBytes))
	}
	if cfg.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: parse.timeout must be positive, got %s", ErrInvalidLimit, cfg.Timeout))
	}
	if cfg.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("%w: parse.max_depth must be positive, got %d", ErrInvalidLimit, cfg.MaxDepth))
	}
	if cfg.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: parse.workers cannot be negative, got %d", ErrInvalidLimit, cfg.Workers))
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}

	return nil
}

func validateServer(cfg *ServerConfig) error {
	if _, _, err := net.SplitHostPort(cfg.Addr); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAddr, cfg.Addr, err)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
