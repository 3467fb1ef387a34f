package profile

import (
	"fmt"
	"strconv"
	"strings"
)

// GetInt parses key's value as a signed decimal integer.
func (s *Store) GetInt(key string) (int64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("profile: %s: %w", key, err)
	}
	return n, nil
}

// GetUint parses key's value as an unsigned decimal integer.
func (s *Store) GetUint(key string) (uint64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("profile: %s: %w", key, err)
	}
	return n, nil
}

// GetBool parses key's value as 1/true/on (true) or 0/false/off (false),
// case-insensitively.
func (s *Store) GetBool(key string) (bool, error) {
	v, err := s.Get(key)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(v) {
	case "1", "true", "on":
		return true, nil
	case "0", "false", "off":
		return false, nil
	default:
		return false, fmt.Errorf("profile: %s: not a boolean: %q", key, v)
	}
}

// GetMilli parses key's value as a decimal float, truncated to
// milli-unit (1/1000) precision and returned as that integer count of
// milli-units, avoiding float drift across a read-modify-write cycle.
func (s *Store) GetMilli(key string) (int64, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("profile: %s: %w", key, err)
	}
	return int64(f * 1000), nil
}

// GetHexBytes parses key's value as space-separated hex byte pairs, e.g.
// "01 02 03 04 05".
func (s *Store) GetHexBytes(key string) ([]byte, error) {
	v, err := s.Get(key)
	if err != nil {
		return nil, err
	}
	return parseHexBytes(key, v)
}

func parseHexBytes(key, v string) ([]byte, error) {
	fields := strings.Fields(v)
	out := make([]byte, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("profile: %s: %w", key, err)
		}
		out = append(out, byte(n))
	}
	return out, nil
}

// GetHexCount parses key's value as a space-separated hex byte string
// and reports the number of byte tokens present, without decoding their
// values. Distinct from GetHexBytes: a count-only read doesn't fail on a
// token that isn't valid hex.
func (s *Store) GetHexCount(key string) (int, error) {
	v, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	return len(strings.Fields(v)), nil
}

// SetHexBytes writes b as a space-separated hex byte string.
func (s *Store) SetHexBytes(key string, b []byte) error {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02X", v)
	}
	return s.Set(key, strings.Join(parts, " "))
}

// GetPassword parses the optional hex-byte-array "Password" key,
// reusing the hex-byte-array parser; it is a SPEC_FULL addition wiring
// T5577Programmer's with_password path end to end from a saved profile.
func (s *Store) GetPassword() ([]byte, error) {
	return s.GetHexBytes("Password")
}
