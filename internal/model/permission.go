package model

import "fmt"

// RoleAdmin may manage every dynamic article.
const RoleAdmin = "admin"

// Principal is the caller identity resolved by the authentication layer.
type Principal struct {
	ID   string
	Name string
	Role string
}

// CanManage reports whether p may delete or publish a. Static articles are
// never manageable at runtime.
func CanManage(p Principal, a *Article) bool {
	if p.ID == "" || a == nil || a.IsStatic() {
		return false
	}
	return p.Role == RoleAdmin || a.Author.ID == p.ID
}

// AsAuthor returns the article author record for p.
func (p Principal) AsAuthor() Author {
	return Author{ID: p.ID, Name: p.Name}
}

// Authorize returns an error wrapping ErrForbidden when p may not manage a.
func Authorize(p Principal, a *Article) error {
	switch {
	case a != nil && a.IsStatic():
		return fmt.Errorf("%w: article %s is read-only", ErrForbidden, a.ID)
	case !CanManage(p, a):
		return fmt.Errorf("%w: %q may not manage this article", ErrForbidden, p.ID)
	}
	return nil
}
