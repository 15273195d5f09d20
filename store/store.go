package store

import (
	"context"
	"errors"

	"fielder/attribute"
)

var (
	// ErrNotFound reports a missing attribute or value bag.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName reports a second attribute with the same name for the
	// same project and kind.
	ErrDuplicateName = errors.New("already exists one with the same name")

	// ErrUnknownAttribute reports value keys that name attributes outside the
	// owning project.
	ErrUnknownAttribute = errors.New("values contain invalid custom attributes")

	// ErrVersionConflict reports a value-bag write that lost a race.
	ErrVersionConflict = errors.New("value bag version conflict")
)

// Store persists custom attributes and per-item value bags.
type Store interface {
	CreateAttribute(ctx context.Context, a *attribute.Attribute) error
	GetAttribute(ctx context.Context, id int64) (attribute.Attribute, error)
	UpdateAttribute(ctx context.Context, a *attribute.Attribute) error
	DeleteAttribute(ctx context.Context, id int64) error
	ListAttributes(ctx context.Context, projectID int64, kind attribute.Kind) ([]attribute.Attribute, error)

	GetValues(ctx context.Context, kind attribute.Kind, itemID int64) (attribute.ValueBag, error)
	SetValues(ctx context.Context, bag *attribute.ValueBag) error
}
