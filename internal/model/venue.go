package model

import "time"

// Venue is a physical location whose seats are sold through the
// engine.  Seat identity is assumed stable for the lifetime of an
// event; the engine does not support relayouting a venue while
// reservations are outstanding.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – display name of the venue.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Venue struct {
	ID        uint64    // venues.id
	Name      string    // venues.name
	CreatedAt time.Time // venues.created_at
	UpdatedAt time.Time // venues.updated_at
}

// Section groups seats inside a venue (e.g. "Floor", "Balcony").  The
// seat map returned to clients is organised by section.
//
// Fields:
//  ID        – primary key identifier.
//  VenueID   – venue this section belongs to.
//  Name      – display name of the section.
//  CreatedAt – creation timestamp.
type Section struct {
	ID        uint64    // sections.id
	VenueID   uint64    // sections.venue_id
	Name      string    // sections.name
	CreatedAt time.Time // sections.created_at
}
