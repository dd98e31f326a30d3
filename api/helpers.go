package api

import (
	"errors"

	"github.com/xraph/forge"

	"github.com/xraph/bastion"
)

// mapError maps domain errors to Forge HTTP errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return forge.NotFound(err.Error())
	}
	if errors.Is(err, bastion.ErrInvalidPattern) || errors.Is(err, bastion.ErrInvalidCondition) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, bastion.ErrCycle) {
		return forge.BadRequest(err.Error())
	}
	if errors.Is(err, bastion.ErrAccessDenied) || errors.Is(err, bastion.ErrSubjectUnknown) {
		return forge.Forbidden(err.Error())
	}
	if errors.Is(err, bastion.ErrAuthentication) ||
		errors.Is(err, bastion.ErrTokenInvalid) ||
		errors.Is(err, bastion.ErrTokenExpired) {
		return forge.Forbidden(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, bastion.ErrRuleNotFound) ||
		errors.Is(err, bastion.ErrEdgeNotFound) ||
		errors.Is(err, bastion.ErrAssignmentNotFound) ||
		errors.Is(err, bastion.ErrSubjectNotFound)
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
