package cart

import "context"

// Store persists carts. Implementations enforce stock limits on AddItem and
// SetQuantity and perform Merge atomically.
type Store interface {
	// Find returns ErrCartNotFound when owner has no cart.
	Find(ctx context.Context, owner Owner) (*Cart, error)
	// AddItem creates the cart lazily and adds quantity to the line for productID.
	AddItem(ctx context.Context, owner Owner, productID string, quantity int) (Item, error)
	SetQuantity(ctx context.Context, owner Owner, productID string, quantity int) error
	RemoveItem(ctx context.Context, owner Owner, productID string) error
	// Merge moves the session cart into the user's cart and deletes it.
	Merge(ctx context.Context, sessionKey, userID string) (MergeResult, error)
}
