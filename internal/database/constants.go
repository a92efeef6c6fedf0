package database

// DefaultListLimit is the number of captures returned when no limit is given
const DefaultListLimit = 50
