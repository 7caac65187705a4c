package config

import (
	"errors"
	"runtime"
	"time"

	"github.com/screa/puzzle-hunter/pkg/types"
)

// Errors
var (
	ErrNoWorkers       = errors.New("workers must be at least 1")
	ErrSessionTooShort = errors.New("session duration must be positive")
	ErrRestNegative    = errors.New("rest duration cannot be negative")
	ErrBitsInverted    = errors.New("min-bits cannot exceed max-bits")
	ErrNoPuzzlesFile   = errors.New("puzzles file path cannot be empty")
	ErrNoSolutionsFile = errors.New("solutions file path cannot be empty")
)

// Config holds the application configuration
type Config struct {
	Workers         int
	SessionDuration time.Duration // length of each search burst
	RestDuration    time.Duration // pause between bursts
	MinBits         int
	MaxBits         int // 0 = no upper bound
	MinReward       float64
	AddressMode     string
	PuzzlesFile     string
	SolutionsFile   string
	StopOnFound     bool
	StatsInterval   time.Duration
	Verbose         bool
	LogFile         string
	LogInterval     int // progress logging interval in seconds
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workers:         runtime.NumCPU(),
		SessionDuration: 10 * time.Minute,
		RestDuration:    time.Minute,
		MinBits:         14,
		AddressMode:     string(types.ModeCompressed),
		PuzzlesFile:     "unsolved_puzzles.json",
		SolutionsFile:   "solutions.log",
		StopOnFound:     true,
		StatsInterval:   24 * time.Hour,
		LogInterval:     5, // Default 5 seconds
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return ErrNoWorkers
	}
	if c.SessionDuration <= 0 {
		return ErrSessionTooShort
	}
	if c.RestDuration < 0 {
		return ErrRestNegative
	}
	if c.MaxBits > 0 && c.MinBits > c.MaxBits {
		return ErrBitsInverted
	}
	if c.PuzzlesFile == "" {
		return ErrNoPuzzlesFile
	}
	if c.SolutionsFile == "" {
		return ErrNoSolutionsFile
	}
	if _, err := types.ParseAddressMode(c.AddressMode); err != nil {
		return err
	}
	return nil
}

// Mode returns the parsed address mode. Call Validate first; an
// unparseable value falls back to compressed.
func (c *Config) Mode() types.AddressMode {
	m, err := types.ParseAddressMode(c.AddressMode)
	if err != nil {
		return types.ModeCompressed
	}
	return m
}

// Filter returns the puzzle eligibility filter for this configuration.
func (c *Config) Filter() types.Filter {
	return types.Filter{
		MinBits:   c.MinBits,
		MaxBits:   c.MaxBits,
		MinReward: c.MinReward,
	}
}
