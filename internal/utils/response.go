package utils

import (
	"errors"

	derrors "mealpay/internal/errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    string            `json:"code"`
	Kind    string            `json:"kind"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(envelope{Success: true, Data: data})
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// Created sends a 201 JSON response.
func Created(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusCreated, data)
}

func fail(c *fiber.Ctx, status int, body ErrorBody) error {
	return c.Status(status).JSON(envelope{Error: &body})
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusBadRequest, ErrorBody{
		Code:    derrors.ErrInvalidInput.Code,
		Kind:    string(derrors.KindInvalidInput),
		Message: message,
	})
}

// ValidationFailed sends a 400 listing every rejected field.
func ValidationFailed(c *fiber.Ctx, fields map[string]string) error {
	return fail(c, fiber.StatusBadRequest, ErrorBody{
		Code:    derrors.ErrInvalidInput.Code,
		Kind:    string(derrors.KindInvalidInput),
		Message: "request validation failed",
		Fields:  fields,
	})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusUnauthorized, ErrorBody{Code: "UNAUTHORIZED", Kind: "unauthorized", Message: message})
}

// Forbidden sends a JSON error response with status 403.
func Forbidden(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusForbidden, ErrorBody{
		Code:    derrors.ErrForbidden.Code,
		Kind:    string(derrors.KindForbidden),
		Message: message,
	})
}

// InternalError sends a JSON error response with status 500.
func InternalError(c *fiber.Ctx, message string) error {
	return fail(c, fiber.StatusInternalServerError, ErrorBody{Code: "INTERNAL_ERROR", Kind: "internal", Message: message})
}

// Error translates an engine error into its HTTP status. Errors that carry
// no DomainError are reported as 500 without their text.
func Error(c *fiber.Ctx, err error) error {
	var de *derrors.DomainError
	if !errors.As(err, &de) {
		return InternalError(c, "internal server error")
	}
	message := de.Message
	if de.Kind == derrors.KindTransactionAborted {
		message = "the operation could not be completed, please retry"
	}
	return fail(c, StatusFor(de.Kind), ErrorBody{Code: de.Code, Kind: string(de.Kind), Message: message})
}

// StatusFor maps an error kind to an HTTP status code.
func StatusFor(kind derrors.Kind) int {
	switch kind {
	case derrors.KindNotFound:
		return fiber.StatusNotFound
	case derrors.KindAlreadyExists, derrors.KindAlreadySettled, derrors.KindInvalidState:
		return fiber.StatusConflict
	case derrors.KindInsufficientBalance, derrors.KindBelowMinimum, derrors.KindWalletNotActive:
		return fiber.StatusUnprocessableEntity
	case derrors.KindInvalidInput:
		return fiber.StatusBadRequest
	case derrors.KindForbidden:
		return fiber.StatusForbidden
	case derrors.KindTransactionAborted:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
