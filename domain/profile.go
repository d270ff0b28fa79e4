// Package domain contains core concepts of the relay.
// This file defines connection profiles and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

// Profile is the identity a connection announces on join.
// The description starts empty and can only change through updateUser.
type Profile struct {
	Username    string `json:"username"`
	Description string `json:"description"`
}

// Identity pairs a connection id with its profile for list snapshots.
type Identity struct {
	ID      string `json:"id"`
	Profile Profile
}
