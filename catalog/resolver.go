// Package catalog resolves shared, name-keyed reference rows (products and
// exercises), creating them on first use.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Resolution is the outcome of Resolve: either an existing row was found or
// a new one was created.
type Resolution[T any] struct {
	Entity  *T
	created bool
}

// Found wraps a pre-existing catalog row.
func Found[T any](e *T) Resolution[T] {
	return Resolution[T]{Entity: e}
}

// Created wraps a row inserted by the resolver.
func Created[T any](e *T) Resolution[T] {
	return Resolution[T]{Entity: e, created: true}
}

// IsCreated reports whether the row was inserted during resolution.
func (r Resolution[T]) IsCreated() bool {
	return r.created
}

// NormalizeName trims surrounding whitespace. An empty result means the
// reference should be skipped.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// Resolve looks up the first row of T whose name equals the trimmed name
// after the database lowercases both sides. When none exists it inserts
// build(name).
//
// Ties between pre-existing rows that share a lowercase name are broken by
// storage order only. There is no uniqueness constraint, so concurrent
// callers may both create the same name.
func Resolve[T any](tx *gorm.DB, name string, build func(name string) *T) (Resolution[T], error) {
	name = NormalizeName(name)
	if name == "" {
		return Resolution[T]{}, errors.New("catalog name is empty")
	}

	var existing T
	res := tx.Where("LOWER(name) = LOWER(?)", name).Limit(1).Find(&existing)
	if res.Error != nil {
		return Resolution[T]{}, fmt.Errorf("look up %q: %w", name, res.Error)
	}
	if res.RowsAffected > 0 {
		return Found(&existing), nil
	}

	entity := build(name)
	if err := tx.Create(entity).Error; err != nil {
		return Resolution[T]{}, fmt.Errorf("create %q: %w", name, err)
	}
	return Created(entity), nil
}
