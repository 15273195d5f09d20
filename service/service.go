package service

import (
	"context"
	"errors"
	"fmt"

	"fielder"
	"fielder/attribute"
	"fielder/event"
	"fielder/store"
)

// ErrMalformedValues reports a values payload that is not a key/value object.
var ErrMalformedValues = errors.New(`invalid content, it must be {"key": "value", ...}`)

// Outbox accepts change events for asynchronous delivery. The relay
// implements it; tests substitute their own.
type Outbox interface {
	Push(record fielder.Record) error
}

type Logger interface {
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Errorw(msg string, keysAndValues ...interface{})
}

// Service runs the custom-attribute operations: structural validation first,
// then storage, then a change event. Outbox failures never fail the user
// operation.
type Service struct {
	store  store.Store
	outbox Outbox
	logger Logger
}

func New(st store.Store, outbox Outbox, logger Logger) *Service {
	return &Service{
		store:  st,
		outbox: outbox,
		logger: logger,
	}
}

func (s *Service) CreateAttribute(ctx context.Context, a *attribute.Attribute, actor string) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if err := s.store.CreateAttribute(ctx, a); err != nil {
		return err
	}

	s.emit(event.New(event.ActionAttributeCreated, a.ProjectID, a.Kind, a.ID, actor, a))
	return nil
}

func (s *Service) GetAttribute(ctx context.Context, id int64) (attribute.Attribute, error) {
	return s.store.GetAttribute(ctx, id)
}

func (s *Service) UpdateAttribute(ctx context.Context, a *attribute.Attribute, actor string) error {
	if err := a.Validate(); err != nil {
		return err
	}

	if err := s.store.UpdateAttribute(ctx, a); err != nil {
		return err
	}

	s.emit(event.New(event.ActionAttributeUpdated, a.ProjectID, a.Kind, a.ID, actor, a))
	return nil
}

func (s *Service) DeleteAttribute(ctx context.Context, id int64, actor string) error {
	a, err := s.store.GetAttribute(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.DeleteAttribute(ctx, id); err != nil {
		return err
	}

	s.emit(event.New(event.ActionAttributeDeleted, a.ProjectID, a.Kind, a.ID, actor, nil))
	return nil
}

func (s *Service) ListAttributes(ctx context.Context, projectID int64, kind attribute.Kind) ([]attribute.Attribute, error) {
	return s.store.ListAttributes(ctx, projectID, kind)
}

// GetValues returns the value bag of an item. An item that never had values
// set yields an empty bag at version zero.
func (s *Service) GetValues(ctx context.Context, kind attribute.Kind, itemID int64) (attribute.ValueBag, error) {
	bag, err := s.store.GetValues(ctx, kind, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return attribute.ValueBag{
			Kind:   kind,
			ItemID: itemID,
			Values: map[int64]interface{}{},
		}, nil
	}
	return bag, err
}

// SetValues validates and writes a value bag. Values of estimation-typed
// attributes are canonicalized before storage, so readers always see the
// compact weeks-days-hours form. On updates the owning project comes from
// the stored row rather than the request.
func (s *Service) SetValues(ctx context.Context, bag *attribute.ValueBag, actor string) error {
	if bag.Values == nil {
		return ErrMalformedValues
	}
	if !bag.Kind.Valid() {
		return attribute.ErrBadKind
	}

	if bag.Version > 0 {
		stored, err := s.store.GetValues(ctx, bag.Kind, bag.ItemID)
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrVersionConflict
		}
		if err != nil {
			return err
		}
		bag.ProjectID = stored.ProjectID
	}

	if err := s.normalizeEstimations(ctx, bag); err != nil {
		return err
	}

	if err := s.store.SetValues(ctx, bag); err != nil {
		return err
	}

	s.emit(event.New(event.ActionValuesUpdated, bag.ProjectID, bag.Kind, bag.ItemID, actor, bag))
	return nil
}

func (s *Service) normalizeEstimations(ctx context.Context, bag *attribute.ValueBag) error {
	attrs, err := s.store.ListAttributes(ctx, bag.ProjectID, bag.Kind)
	if err != nil {
		return err
	}

	estimation := map[int64]struct{}{}
	for _, a := range attrs {
		if a.Type == attribute.TypeEstimation {
			estimation[a.ID] = struct{}{}
		}
	}

	for id, v := range bag.Values {
		if _, ok := estimation[id]; !ok {
			continue
		}
		raw, ok := v.(string)
		if !ok {
			return fmt.Errorf("attribute %d: %w: not a string", id, attribute.ErrBadEstimation)
		}
		normalized, err := attribute.NormalizeEstimation(raw)
		if err != nil {
			return fmt.Errorf("attribute %d: %w", id, err)
		}
		bag.Values[id] = normalized
	}
	return nil
}

func (s *Service) emit(e *event.ChangeEvent) {
	if s.outbox == nil {
		return
	}
	if err := s.outbox.Push(e); err != nil {
		s.logger.Warnw("change event dropped", "action", e.Action, "error", err)
	}
}
