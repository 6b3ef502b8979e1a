// Package variables holds the global variable store and the environment.
//
// Variables are string values keyed by name. User-defined globals and the
// calendar fields refreshed from time events share the same namespace.
// Every mutation is written to the variables file; a failed write is
// logged and the in-memory value stays.
//
// Neither Store nor Environment is safe for concurrent use.
package variables

import (
	"maps"

	"github.com/nerrad567/gray-logic-resolver/internal/jsonfile"
)

// Calendar variable names refreshed by environment.timechanged.
const (
	Minute  = "minute"
	Hour    = "hour"
	Day     = "day"
	Weekday = "weekday"
	Month   = "month"
	Year    = "year"
)

// Logger defines the logging interface used by the store.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Calendar is the current time split into variable values. Empty fields
// are left untouched by SetCalendar.
type Calendar struct {
	Minute  string
	Hour    string
	Day     string
	Weekday string
	Month   string
	Year    string
}

// Store is the variable store.
type Store struct {
	vars   map[string]string
	path   string
	logger Logger
}

// NewStore creates an empty store persisted to path. An empty path keeps
// the store in memory only.
func NewStore(path string) *Store {
	return &Store{
		vars:   make(map[string]string),
		path:   path,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load replaces the store's contents with the variables file. A missing
// file leaves the store empty.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	vars := make(map[string]string)
	if _, err := jsonfile.Load(s.path, &vars); err != nil {
		return err
	}
	if vars == nil {
		vars = make(map[string]string)
	}
	s.vars = vars
	return nil
}

// Get returns a variable's value.
func (s *Store) Get(name string) (string, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// All returns a copy of every variable.
func (s *Store) All() map[string]string {
	return maps.Clone(s.vars)
}

// Set assigns a variable and persists the store.
func (s *Store) Set(name, value string) {
	s.vars[name] = value
	s.save()
}

// Delete removes a variable and persists the store. It reports whether the
// variable existed.
func (s *Store) Delete(name string) bool {
	if _, ok := s.vars[name]; !ok {
		return false
	}
	delete(s.vars, name)
	s.save()
	return true
}

// SetCalendar overwrites the calendar variables and persists the store once.
func (s *Store) SetCalendar(c Calendar) {
	for name, value := range map[string]string{
		Minute:  c.Minute,
		Hour:    c.Hour,
		Day:     c.Day,
		Weekday: c.Weekday,
		Month:   c.Month,
		Year:    c.Year,
	} {
		if value != "" {
			s.vars[name] = value
		}
	}
	s.save()
}

func (s *Store) save() {
	if s.path == "" {
		return
	}
	if err := jsonfile.Save(s.path, s.vars); err != nil {
		s.logger.Error("failed to write variables file", "path", s.path, "error", err)
	}
}

// Environment is the site position, updated only by position events.
type Environment struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// SetPosition overwrites both coordinates.
func (e *Environment) SetPosition(latitude, longitude float64) {
	e.Latitude = &latitude
	e.Longitude = &longitude
}
