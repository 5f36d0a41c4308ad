// Package models defines the client-side data model of the Telecel token
// lifecycle: the token state variant and its pure derivations, status
// snapshots, refresh history entries and the local attempt journal.
package models
