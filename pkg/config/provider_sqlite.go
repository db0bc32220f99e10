package config

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// DefaultProfile is the profile read when none is named
const DefaultProfile = "default"

const profileSchema = `
CREATE TABLE IF NOT EXISTS profiles (
	name                 TEXT PRIMARY KEY,
	rho_max              REAL,
	rho_null             REAL,
	c_ov                 REAL,
	k_ov                 REAL,
	k                    REAL,
	tau                  REAL,
	eta_null             REAL,
	hs_unit              TEXT,
	swe_unit             TEXT,
	interpolate_gaps     INTEGER,
	max_gap_length       INTEGER,
	ignore_zero_padded   INTEGER,
	ignore_trailing_zero INTEGER,
	despike_kernel       INTEGER,
	workers              INTEGER
)`

// SQLiteProvider implements ConfigProvider for named parameter profiles
// stored in a SQLite database
type SQLiteProvider struct {
	db      *sql.DB
	dbPath  string
	profile string
}

// NewSQLiteProvider opens the profile database at dbPath
func NewSQLiteProvider(dbPath, profile string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if profile == "" {
		profile = DefaultProfile
	}

	return &SQLiteProvider{
		db:      db,
		dbPath:  dbPath,
		profile: profile,
	}, nil
}

// InitSchema creates the profiles table if it does not exist
func (s *SQLiteProvider) InitSchema() error {
	if _, err := s.db.Exec(profileSchema); err != nil {
		return fmt.Errorf("failed to create profiles table: %w", err)
	}
	return nil
}

// LoadConfig loads the provider's profile. NULL columns keep their defaults.
func (s *SQLiteProvider) LoadConfig() (*Config, error) {
	query := `
		SELECT rho_max, rho_null, c_ov, k_ov, k, tau, eta_null,
		       hs_unit, swe_unit,
		       interpolate_gaps, max_gap_length, ignore_zero_padded, ignore_trailing_zero,
		       despike_kernel, workers
		FROM profiles
		WHERE name = ?
	`

	var rhoMax, rhoNull, cOv, kOv, k, tau, etaNull sql.NullFloat64
	var hsUnit, sweUnit sql.NullString
	var interpolate, ignoreZeroPadded, ignoreTrailingZero sql.NullBool
	var maxGap, despike, workers sql.NullInt64

	err := s.db.QueryRow(query, s.profile).Scan(
		&rhoMax, &rhoNull, &cOv, &kOv, &k, &tau, &etaNull,
		&hsUnit, &sweUnit,
		&interpolate, &maxGap, &ignoreZeroPadded, &ignoreTrailingZero,
		&despike, &workers,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("profile %q not found in %s", s.profile, s.dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query profile %q: %w", s.profile, err)
	}

	config := Defaults()

	floatFields := []struct {
		src sql.NullFloat64
		dst *float64
	}{
		{rhoMax, &config.Model.RhoMax},
		{rhoNull, &config.Model.RhoNull},
		{cOv, &config.Model.COv},
		{kOv, &config.Model.KOv},
		{k, &config.Model.K},
		{tau, &config.Model.Tau},
		{etaNull, &config.Model.EtaNull},
	}
	for _, f := range floatFields {
		if f.src.Valid {
			*f.dst = f.src.Float64
		}
	}

	if hsUnit.Valid {
		config.Model.HSUnit = hsUnit.String
	}
	if sweUnit.Valid {
		config.Model.SWEUnit = sweUnit.String
	}
	if interpolate.Valid {
		config.Gaps.Interpolate = interpolate.Bool
	}
	if maxGap.Valid {
		config.Gaps.MaxLength = int(maxGap.Int64)
	}
	if ignoreZeroPadded.Valid {
		config.Gaps.IgnoreZeroPadded = ignoreZeroPadded.Bool
	}
	if ignoreTrailingZero.Valid {
		config.Gaps.IgnoreTrailingZero = ignoreTrailingZero.Bool
	}
	if despike.Valid {
		config.DespikeKernel = int(despike.Int64)
	}
	if workers.Valid {
		config.Workers = int(workers.Int64)
	}

	return config, nil
}

// SaveProfile stores cfg under name, replacing an existing profile
func (s *SQLiteProvider) SaveProfile(name string, cfg *Config) error {
	query := `
		INSERT OR REPLACE INTO profiles (
			name, rho_max, rho_null, c_ov, k_ov, k, tau, eta_null,
			hs_unit, swe_unit,
			interpolate_gaps, max_gap_length, ignore_zero_padded, ignore_trailing_zero,
			despike_kernel, workers
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.Exec(query,
		name, cfg.Model.RhoMax, cfg.Model.RhoNull, cfg.Model.COv, cfg.Model.KOv,
		cfg.Model.K, cfg.Model.Tau, cfg.Model.EtaNull,
		cfg.Model.HSUnit, cfg.Model.SWEUnit,
		cfg.Gaps.Interpolate, cfg.Gaps.MaxLength, cfg.Gaps.IgnoreZeroPadded, cfg.Gaps.IgnoreTrailingZero,
		cfg.DespikeKernel, cfg.Workers,
	)
	if err != nil {
		return fmt.Errorf("failed to save profile %q: %w", name, err)
	}
	return nil
}

// IsReadOnly returns false since profiles can be saved
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
