package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Lifetime — длительность, которую можно задать как Go-duration ("1h")
// или как целое число секунд ("3600").
type Lifetime time.Duration

// ParseLifetime разбирает строку в Lifetime.
func ParseLifetime(s string) (Lifetime, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Lifetime(time.Duration(secs) * time.Second), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid lifetime %q: %w", s, err)
	}
	return Lifetime(d), nil
}

// SetValue реализует cleanenv.Setter.
func (l *Lifetime) SetValue(s string) error {
	v, err := ParseLifetime(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// UnmarshalText позволяет задавать Lifetime в YAML.
func (l *Lifetime) UnmarshalText(text []byte) error {
	return l.SetValue(string(text))
}

// Duration возвращает значение как time.Duration.
func (l Lifetime) Duration() time.Duration {
	return time.Duration(l)
}
