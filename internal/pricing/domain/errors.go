package domain

import "errors"

var (
	// ErrMalformedRule marks a structurally broken definition. This is a
	// partner/operator data bug, never turned into a numeric price.
	ErrMalformedRule = errors.New("price_rule_malformed")

	// ErrNoPrice is the legitimate "rule produced no price" business outcome.
	ErrNoPrice = errors.New("price_not_applicable")

	ErrRuleNotFound   = errors.New("price_rule_not_found")
	ErrInvalidContext = errors.New("invalid_pricing_context")
	ErrInvalidArea    = errors.New("invalid_area")
)
