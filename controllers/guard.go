package controllers

// Authorizer decides whether an actor may mutate a resource owned by
// ownerID. It is injected into the mutation controller so the ownership
// policy stays in one place instead of being repeated per handler.
type Authorizer func(ownerID, actorID uint) bool

// AuthorOnly permits only the resource's author. Anonymous actors are
// always denied.
func AuthorOnly(ownerID, actorID uint) bool {
	return actorID != 0 && ownerID == actorID
}
