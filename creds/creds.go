// Package creds persists Wi-Fi credentials in a small fixed-layout
// non-volatile region. The layout mirrors the on-device EEPROM map:
//
//	offset 0..63    SSID, null-terminated
//	offset 64..127  pre-shared key, null-terminated
//	offset 128      configured flag (0 = unconfigured, 1 = configured)
package creds

import (
	"errors"
	"fmt"

	"github.com/awnumar/memguard"
	"github.com/rs/zerolog"
)

const (
	ssidOffset = 0
	pskOffset  = 64
	flagOffset = 128

	// FieldWidth is the maximum stored length of the SSID and PSK,
	// excluding the null terminator.
	FieldWidth = 63

	// RegionSize is the number of bytes the store needs.
	RegionSize = 129
)

// ErrNotConfigured is returned by Load when the configured flag is unset.
var ErrNotConfigured = errors.New("wifi credentials not configured")

// Region is the non-volatile byte region backing the store. WriteAt must be
// durable by the time it returns; the store orders flag writes around field
// writes so a torn write never yields flag=1 with garbage fields.
type Region interface {
	ReadAt(off int, p []byte) error
	WriteAt(off int, p []byte) error
}

// Store reads and writes the credential record.
type Store struct {
	region Region
	log    zerolog.Logger
}

// New creates a Store over the given region.
func New(region Region, log zerolog.Logger) *Store {
	return &Store{
		region: region,
		log:    log.With().Str("component", "creds").Logger(),
	}
}

// Load returns the stored SSID and pre-shared key, or ErrNotConfigured when
// the configured flag is zero.
func (s *Store) Load() (ssid, psk string, err error) {
	flag := make([]byte, 1)
	if err := s.region.ReadAt(flagOffset, flag); err != nil {
		return "", "", fmt.Errorf("reading configured flag: %w", err)
	}
	if flag[0] != 1 {
		return "", "", ErrNotConfigured
	}

	buf := make([]byte, FieldWidth+1)
	defer memguard.WipeBytes(buf)

	if err := s.region.ReadAt(ssidOffset, buf); err != nil {
		return "", "", fmt.Errorf("reading ssid: %w", err)
	}
	ssid = cString(buf)

	if err := s.region.ReadAt(pskOffset, buf); err != nil {
		return "", "", fmt.Errorf("reading psk: %w", err)
	}
	psk = cString(buf)

	return ssid, psk, nil
}

// Save writes both fields and then sets the configured flag. The flag is
// written last so a failure mid-save leaves the record unconfigured rather
// than half-written. Over-long fields are truncated and the truncation is
// reported through the returned flag.
func (s *Store) Save(ssid, psk string) (truncated bool, err error) {
	// Drop the flag first; a crash between here and the final flag write
	// must not leave stale fields marked valid.
	if err := s.region.WriteAt(flagOffset, []byte{0}); err != nil {
		return false, fmt.Errorf("clearing configured flag: %w", err)
	}

	ssidBytes, ssidTrunc := fieldBytes(ssid)
	pskBytes, pskTrunc := fieldBytes(psk)
	defer memguard.WipeBytes(pskBytes)
	truncated = ssidTrunc || pskTrunc
	if truncated {
		s.log.Warn().Bool("ssid", ssidTrunc).Bool("psk", pskTrunc).Msg("credential field truncated")
	}

	if err := s.region.WriteAt(ssidOffset, ssidBytes); err != nil {
		return truncated, fmt.Errorf("writing ssid: %w", err)
	}
	if err := s.region.WriteAt(pskOffset, pskBytes); err != nil {
		return truncated, fmt.Errorf("writing psk: %w", err)
	}
	if err := s.region.WriteAt(flagOffset, []byte{1}); err != nil {
		return truncated, fmt.Errorf("setting configured flag: %w", err)
	}
	s.log.Info().Str("ssid", ssid).Msg("credentials saved")
	return truncated, nil
}

// Clear drops the configured flag. Field bytes are left in place; the flag
// alone decides whether the record is readable.
func (s *Store) Clear() error {
	if err := s.region.WriteAt(flagOffset, []byte{0}); err != nil {
		return fmt.Errorf("clearing configured flag: %w", err)
	}
	s.log.Info().Msg("credentials cleared")
	return nil
}

// Configured reports whether a credential record is present.
func (s *Store) Configured() bool {
	_, _, err := s.Load()
	return err == nil
}

// fieldBytes lays out a string into a null-terminated field buffer of
// FieldWidth+1 bytes, truncating when needed.
func fieldBytes(v string) (buf []byte, truncated bool) {
	buf = make([]byte, FieldWidth+1)
	b := []byte(v)
	if len(b) > FieldWidth {
		b = b[:FieldWidth]
		truncated = true
	}
	copy(buf, b)
	return buf, truncated
}

// cString returns the bytes before the first NUL.
func cString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}
