package model

import "context"

// ReferenceStore holds the production and shadow model pointers. The
// production reference is swapped atomically only after full validation;
// a shadow candidate scores alongside production during its trial period.
type ReferenceStore interface {
	// Active returns the production model version id.
	Active(ctx context.Context) (string, error)
	// SetActive points production at the version.
	SetActive(ctx context.Context, versionID string) error
	// Shadow returns the trial candidate, if one is set.
	Shadow(ctx context.Context) (string, bool, error)
	// SetShadow installs a trial candidate without touching production.
	SetShadow(ctx context.Context, versionID string) error
	// PromoteShadow atomically makes the shadow candidate the production
	// model and clears the shadow slot.
	PromoteShadow(ctx context.Context) error
}
