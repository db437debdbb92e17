package models

import "time"

// Hash dictionary lookup types.
const (
	HashTypeVehicle    = "vehicle"
	HashTypeTrailer    = "trailer"
	HashTypeTeam       = "team"
	HashTypeDepartment = "department"
	HashTypeUHF        = "uhf"
	HashTypeUnknown    = "unknown"
)

// HashEntry maps an opaque upstream hash, scoped by lookup type, to its
// resolved human-readable value. The pair (TIPHash, LookupType) is stable
// once created; only ResolvedValue may change as the authoritative
// dictionary is re-synced.
type HashEntry struct {
	TIPHash       string    `gorm:"primaryKey;column:tip_hash;size:128" json:"tip_hash"`
	LookupType    string    `gorm:"primaryKey;column:lookup_type;size:32" json:"lookup_type"`
	ResolvedValue string    `gorm:"column:resolved_value" json:"resolved_value"`
	SourceType    string    `gorm:"column:source_type;size:32" json:"source_type,omitempty"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for HashEntry.
func (HashEntry) TableName() string {
	return "hash_lookup"
}

// UnknownHash records a sighting of a hash that had no entry in the
// authoritative dictionary at lookup time, for later human resolution. The
// first-encountered timestamp is preserved across repeated sightings.
type UnknownHash struct {
	TIPHash          string     `gorm:"primaryKey;column:tip_hash;size:128" json:"tip_hash"`
	LookupType       string     `gorm:"primaryKey;column:lookup_type;size:32" json:"lookup_type"`
	FirstEncountered time.Time  `gorm:"column:first_encountered;autoCreateTime" json:"first_encountered"`
	ResolvedAt       *time.Time `gorm:"column:resolved_at" json:"resolved_at,omitempty"`
	ResolvedValue    string     `gorm:"column:resolved_value" json:"resolved_value,omitempty"`
}

// TableName returns the table name for UnknownHash.
func (UnknownHash) TableName() string {
	return "unknown_hashes"
}
