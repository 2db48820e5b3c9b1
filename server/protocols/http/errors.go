package http

import (
	"github.com/gear6io/icecat/pkg/errors"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

var fiberWireTypes = map[int]string{
	fiber.StatusBadRequest:           "BadRequestException",
	fiber.StatusNotFound:             "NotFoundException",
	fiber.StatusMethodNotAllowed:     "MethodNotAllowedException",
	fiber.StatusNotAcceptable:        "NotAcceptableException",
	fiber.StatusUnsupportedMediaType: "UnsupportedMediaTypeException",
	fiber.StatusServiceUnavailable:   "ServiceUnavailableException",
	fiber.StatusGatewayTimeout:       "GatewayTimeoutException",
}

// newErrorHandler builds the fiber error handler translating catalog errors
// into the wire shape {"error": {"message", "type", "code", "stack"?}} with
// HTTP status equal to code.
func newErrorHandler(logger zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// Routing-level failures (unknown path, wrong method) come in as
		// fiber errors, not catalog errors
		if fe, ok := err.(*fiber.Error); ok {
			wireType, mapped := fiberWireTypes[fe.Code]
			if !mapped {
				wireType = "InternalServerErrorException"
			}
			return c.Status(fe.Code).JSON(errorResponse{Error: errorBody{
				Message: fe.Message,
				Type:    wireType,
				Code:    fe.Code,
			}})
		}

		catErr := errors.AsError(err)
		status := errors.HTTPStatus(catErr)
		body := errorBody{
			Message: catErr.Message,
			Type:    errors.WireType(catErr),
			Code:    status,
		}
		if status >= 500 {
			body.Stack = catErr.StackStrings()
			logger.Error().
				Err(err).
				Str("request_id", requestID(c)).
				Str("path", c.Path()).
				Msg("Request failed")
		} else {
			logger.Debug().
				Str("code", catErr.Code.String()).
				Str("request_id", requestID(c)).
				Str("path", c.Path()).
				Msg(catErr.Message)
		}

		return c.Status(status).JSON(errorResponse{Error: body})
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return ""
}

// parseBody decodes a JSON request body, coercing parse failures into
// validation errors with a flat "field: message" text.
func parseBody(c *fiber.Ctx, v any) error {
	if err := c.BodyParser(v); err != nil {
		return errors.Newf(errors.Validation, "body: %v", err)
	}
	return nil
}
