package controller

import (
	"net/http"

	"github.com/Laisky/errors/v2"
	"github.com/go-playground/validator/v10"

	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/assumerole"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/claude"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/imagegen"
	"github.com/bedrock-gateway/bedrock-assumerole/relay/adaptor/aws/profile"
	relaycontroller "github.com/bedrock-gateway/bedrock-assumerole/relay/controller"
)

// statusCode maps a relay error to the HTTP status returned to the caller.
// Bedrock errors keep their upstream status; anything unrecognised is a bad gateway.
func statusCode(err error) int {
	var (
		invokeErr      *aws.InvokeError
		validationErrs validator.ValidationErrors
		configErr      *profile.InvalidConfigurationError
		modelErr       *aws.UnsupportedModelError
		taskErr        *imagegen.UnsupportedTaskTypeError
		paramErr       *imagegen.MissingParameterError
		inputErr       *relaycontroller.InvalidInputError
	)

	switch {
	case errors.As(err, &invokeErr):
		return invokeErr.StatusCode
	case errors.As(err, &validationErrs),
		errors.As(err, &configErr),
		errors.As(err, &modelErr),
		errors.As(err, &taskErr),
		errors.As(err, &paramErr),
		errors.As(err, &inputErr),
		errors.Is(err, claude.ErrMissingBinaryData),
		errors.Is(err, assumerole.ErrMissingBaseCredentials),
		errors.Is(err, assumerole.ErrMissingRoleArn):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}
